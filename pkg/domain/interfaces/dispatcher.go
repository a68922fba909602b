package interfaces

import (
	"context"

	"github.com/secmon-lab/taskrelay/pkg/domain/model"
)

// Dispatcher routes an action to the handler that executes it
type Dispatcher interface {
	Dispatch(ctx context.Context, action *model.Action) (*model.DispatchResult, error)
}
