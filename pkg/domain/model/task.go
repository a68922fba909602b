package model

import (
	"math"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
)

// TaskID is assigned by the repository on creation
type TaskID int64

func (id TaskID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseTaskID parses a positive decimal task ID
func ParseTaskID(s string) (TaskID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, goerr.Wrap(ErrInvalidTaskID, "task ID must be a positive integer", goerr.V(TaskIDKey, s))
	}
	return TaskID(v), nil
}

// Task pairs a description and an optional action with its lifecycle state
type Task struct {
	ID          TaskID
	Description string
	Action      *Action // nil until an action is known
	Status      types.TaskStatus
	Progress    float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Copy returns a copy of the task. The action is shared since it is immutable.
func (t *Task) Copy() *Task {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// ValidateProgress checks that p lies in the closed interval [0.0, 1.0]
func ValidateProgress(p float64) error {
	if math.IsNaN(p) || p < 0.0 || p > 1.0 {
		return goerr.Wrap(ErrInvalidProgress, "progress out of range", goerr.V(ProgressKey, p))
	}
	return nil
}

// TaskUpdate is a partial update of a task. Nil fields are left unchanged.
type TaskUpdate struct {
	Description *string
	Action      *Action
	ClearAction bool
	Status      *types.TaskStatus
	Progress    *float64
}

// IsEmpty reports whether the update touches no field
func (u *TaskUpdate) IsEmpty() bool {
	return u == nil ||
		(u.Description == nil && u.Action == nil && !u.ClearAction && u.Status == nil && u.Progress == nil)
}

// Validate checks the status and progress values carried by the update
func (u *TaskUpdate) Validate() error {
	if u == nil {
		return nil
	}
	if u.Status != nil && !u.Status.IsValid() {
		return goerr.Wrap(ErrInvalidStatus, "unknown status", goerr.V("status", *u.Status))
	}
	if u.Progress != nil {
		if err := ValidateProgress(*u.Progress); err != nil {
			return err
		}
	}
	if u.Action != nil && u.ClearAction {
		return goerr.New("action and clear_action are mutually exclusive")
	}
	return nil
}

// Apply writes the set fields of u into t. UpdatedAt is left to the caller.
func (u *TaskUpdate) Apply(t *Task) {
	if u == nil || t == nil {
		return
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.ClearAction {
		t.Action = nil
	} else if u.Action != nil {
		t.Action = u.Action
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Progress != nil {
		t.Progress = *u.Progress
	}
}
