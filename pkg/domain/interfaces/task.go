package interfaces

import (
	"context"

	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
)

// TaskRepository defines the interface for Task data access.
// Implementations must be safe for concurrent use.
type TaskRepository interface {
	// Create stores a new task with an auto-generated ID and timestamps
	Create(ctx context.Context, task *model.Task) (*model.Task, error)

	// Get retrieves a task by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id model.TaskID) (*model.Task, error)

	// List retrieves all tasks, newest created first
	List(ctx context.Context) ([]*model.Task, error)

	// ListByStatus retrieves tasks in the given status, newest created first
	ListByStatus(ctx context.Context, status types.TaskStatus) ([]*model.Task, error)

	// Update applies a partial update and refreshes UpdatedAt. Returns ErrNotFound if absent.
	Update(ctx context.Context, id model.TaskID, update *model.TaskUpdate) (*model.Task, error)

	// Transition atomically sets the status to `to` if the current status is
	// one of `from`. Returns ErrStatusConflict otherwise, or ErrNotFound.
	// When mutate is non-nil it is applied in the same write.
	Transition(ctx context.Context, id model.TaskID, from []types.TaskStatus, to types.TaskStatus, mutate *model.TaskUpdate) (*model.Task, error)

	// Delete removes a task. Returns false if no such task existed.
	Delete(ctx context.Context, id model.TaskID) (bool, error)
}
