package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/domain/interfaces"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
	"github.com/secmon-lab/taskrelay/pkg/utils/async"
	"github.com/secmon-lab/taskrelay/pkg/utils/errutil"
	"github.com/secmon-lab/taskrelay/pkg/utils/logging"
)

// TaskUseCase manages the task lifecycle and hands actions to the dispatcher
type TaskUseCase struct {
	repo         interfaces.Repository
	translator   interfaces.Translator
	dispatcher   interfaces.Dispatcher
	autoComplete bool
}

// StartResult is the outcome of starting a task. Dispatch is nil when nothing
// was dispatched.
type StartResult struct {
	Task     *model.Task
	Dispatch *model.DispatchResult
}

func NewTaskUseCase(repo interfaces.Repository, translator interfaces.Translator, dispatcher interfaces.Dispatcher, autoComplete bool) *TaskUseCase {
	return &TaskUseCase{
		repo:         repo,
		translator:   translator,
		dispatcher:   dispatcher,
		autoComplete: autoComplete,
	}
}

// CreateTask validates and stores a new task. An empty status means NEW.
func (uc *TaskUseCase) CreateTask(ctx context.Context, description string, action *model.Action, status types.TaskStatus, progress float64) (*model.Task, error) {
	if status == "" {
		status = types.TaskStatusNew
	}
	if !status.IsValid() {
		return nil, goerr.Wrap(ErrInvalidStatus, "unknown status", goerr.V(StatusKey, status))
	}
	if err := model.ValidateProgress(progress); err != nil {
		return nil, err
	}

	created, err := uc.repo.Task().Create(ctx, &model.Task{
		Description: description,
		Action:      action,
		Status:      status,
		Progress:    progress,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create task")
	}

	logging.From(ctx).Info("task created", "task_id", created.ID, "status", created.Status)
	return created, nil
}

// CreateTaskFromText translates text into an action and stores a task with
// text as its description.
func (uc *TaskUseCase) CreateTaskFromText(ctx context.Context, text string, status types.TaskStatus, progress float64) (*model.Task, error) {
	if uc.translator == nil {
		return nil, goerr.Wrap(ErrTranslatorUnavailable, "cannot create task from text")
	}

	// validate before paying for a translation
	if strings.TrimSpace(text) == "" {
		return nil, goerr.Wrap(ErrEmptyDescription, "cannot translate an empty description")
	}
	if status != "" && !status.IsValid() {
		return nil, goerr.Wrap(ErrInvalidStatus, "unknown status", goerr.V(StatusKey, status))
	}
	if err := model.ValidateProgress(progress); err != nil {
		return nil, err
	}

	action, err := uc.translator.Translate(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to translate request")
	}

	return uc.CreateTask(ctx, text, action, status, progress)
}

// StartTask moves a NEW task to STARTED and dispatches its action.
//
// Only one caller can win the NEW to STARTED transition, so an action is never
// dispatched twice. The task stays STARTED whatever the dispatch outcome.
func (uc *TaskUseCase) StartTask(ctx context.Context, id model.TaskID) (*StartResult, error) {
	task, err := uc.begin(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &StartResult{Task: task}
	if task.Action == nil {
		return result, goerr.Wrap(ErrNoAction, "task started without an action", goerr.V(TaskIDKey, id))
	}

	dispatched, err := uc.dispatch(ctx, task)
	result.Dispatch = dispatched
	if err != nil {
		return result, err
	}

	if completed := uc.maybeComplete(ctx, task); completed != nil {
		result.Task = completed
	}
	return result, nil
}

// StartTaskAsync performs the NEW to STARTED transition and returns; the
// action is dispatched in the background and its outcome only logged.
func (uc *TaskUseCase) StartTaskAsync(ctx context.Context, id model.TaskID) (*model.Task, error) {
	task, err := uc.begin(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Action == nil {
		return task, goerr.Wrap(ErrNoAction, "task started without an action", goerr.V(TaskIDKey, id))
	}

	async.Dispatch(ctx, func(ctx context.Context) error {
		if _, err := uc.dispatch(ctx, task); err != nil {
			return err
		}
		uc.maybeComplete(ctx, task)
		return nil
	})

	return task, nil
}

// begin checks the preconditions of a start and performs the transition
func (uc *TaskUseCase) begin(ctx context.Context, id model.TaskID) (*model.Task, error) {
	if uc.dispatcher == nil {
		return nil, goerr.Wrap(ErrDispatcherUnavailable, "cannot start task", goerr.V(TaskIDKey, id))
	}

	task, err := uc.repo.Task().Transition(ctx, id,
		[]types.TaskStatus{types.TaskStatusNew}, types.TaskStatusStarted, nil)
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrNotFound):
			return nil, goerr.Wrap(ErrTaskNotFound, "cannot start task", goerr.V(TaskIDKey, id))
		case errors.Is(err, interfaces.ErrStatusConflict):
			return nil, goerr.Wrap(ErrTaskAlreadyStarted, "task has left NEW", goerr.V(TaskIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to start task", goerr.V(TaskIDKey, id))
	}

	logging.From(ctx).Info("task started", "task_id", id)
	return task, nil
}

func (uc *TaskUseCase) dispatch(ctx context.Context, task *model.Task) (*model.DispatchResult, error) {
	result, err := uc.dispatcher.Dispatch(ctx, task.Action)
	if err != nil {
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", ErrDispatchFailed, err), "failed to dispatch task action",
			goerr.V(TaskIDKey, task.ID),
			goerr.V("action", task.Action.String()))
	}
	if !result.Success {
		return result, goerr.Wrap(ErrDispatchFailed, "task action reported failure",
			goerr.V(TaskIDKey, task.ID),
			goerr.V("action", task.Action.String()),
			goerr.V("reason", result.Error))
	}
	return result, nil
}

// maybeComplete applies the auto-complete policy. A failure to complete is
// logged and otherwise ignored since the dispatch already happened.
func (uc *TaskUseCase) maybeComplete(ctx context.Context, task *model.Task) *model.Task {
	if !uc.autoComplete {
		return nil
	}
	completed, err := uc.CompleteTask(ctx, task.ID)
	if err != nil {
		_ = errutil.Handle(ctx, err, "failed to auto-complete task")
		return nil
	}
	return completed
}

// CompleteTask marks a NEW or STARTED task COMPLETED with full progress
func (uc *TaskUseCase) CompleteTask(ctx context.Context, id model.TaskID) (*model.Task, error) {
	full := 1.0
	task, err := uc.repo.Task().Transition(ctx, id,
		[]types.TaskStatus{types.TaskStatusNew, types.TaskStatusStarted}, types.TaskStatusCompleted,
		&model.TaskUpdate{Progress: &full})
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrNotFound):
			return nil, goerr.Wrap(ErrTaskNotFound, "cannot complete task", goerr.V(TaskIDKey, id))
		case errors.Is(err, interfaces.ErrStatusConflict):
			return nil, goerr.Wrap(ErrTaskAlreadyCompleted, "task is terminal", goerr.V(TaskIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to complete task", goerr.V(TaskIDKey, id))
	}

	logging.From(ctx).Info("task completed", "task_id", id)
	return task, nil
}

// UpdateTask applies a partial update. Every field is validated before the
// store is touched. Status is written as given; use StartTask and
// CompleteTask for guarded transitions.
func (uc *TaskUseCase) UpdateTask(ctx context.Context, id model.TaskID, update *model.TaskUpdate) (*model.Task, error) {
	if update.IsEmpty() {
		return nil, goerr.Wrap(ErrNoFieldsProvided, "update has no fields", goerr.V(TaskIDKey, id))
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}

	updated, err := uc.repo.Task().Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrTaskNotFound, "cannot update task", goerr.V(TaskIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to update task", goerr.V(TaskIDKey, id))
	}

	return updated, nil
}

// DeleteTask removes a task and reports whether it existed
func (uc *TaskUseCase) DeleteTask(ctx context.Context, id model.TaskID) (bool, error) {
	deleted, err := uc.repo.Task().Delete(ctx, id)
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete task", goerr.V(TaskIDKey, id))
	}
	if deleted {
		logging.From(ctx).Info("task deleted", "task_id", id)
	}
	return deleted, nil
}

// GetTask returns the task, or nil without error when it does not exist
func (uc *TaskUseCase) GetTask(ctx context.Context, id model.TaskID) (*model.Task, error) {
	task, err := uc.repo.Task().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get task", goerr.V(TaskIDKey, id))
	}
	return task, nil
}

// ListTasks returns all tasks, newest first
func (uc *TaskUseCase) ListTasks(ctx context.Context) ([]*model.Task, error) {
	tasks, err := uc.repo.Task().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tasks")
	}
	return tasks, nil
}

// ListTasksByStatus returns the tasks in status, newest first
func (uc *TaskUseCase) ListTasksByStatus(ctx context.Context, status types.TaskStatus) ([]*model.Task, error) {
	if !status.IsValid() {
		return nil, goerr.Wrap(ErrInvalidStatus, "unknown status", goerr.V(StatusKey, status))
	}
	tasks, err := uc.repo.Task().ListByStatus(ctx, status)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tasks", goerr.V(StatusKey, status))
	}
	return tasks, nil
}

// Dispatch executes a standalone action without a task
func (uc *TaskUseCase) Dispatch(ctx context.Context, action *model.Action) (*model.DispatchResult, error) {
	if uc.dispatcher == nil {
		return nil, goerr.Wrap(ErrDispatcherUnavailable, "cannot dispatch action")
	}
	result, err := uc.dispatcher.Dispatch(ctx, action)
	if err != nil {
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", ErrDispatchFailed, err), "failed to dispatch action",
			goerr.V("action", action.String()))
	}
	return result, nil
}
