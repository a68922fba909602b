package interfaces

import (
	"context"

	"github.com/secmon-lab/taskrelay/pkg/domain/model"
)

// Translator converts a free-text task description into one structured action
type Translator interface {
	Translate(ctx context.Context, text string) (*model.Action, error)
}
