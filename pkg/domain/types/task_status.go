package types

import "fmt"

// TaskStatus represents the lifecycle status of a task
type TaskStatus string

const (
	TaskStatusNew       TaskStatus = "NEW"
	TaskStatusStarted   TaskStatus = "STARTED"
	TaskStatusCompleted TaskStatus = "COMPLETED"
)

// AllTaskStatuses returns all valid task statuses in lifecycle order
func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusNew,
		TaskStatusStarted,
		TaskStatusCompleted,
	}
}

// IsValid checks if the task status is valid
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusNew,
		TaskStatusStarted,
		TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed from s
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted
}

// CanTransition reports whether moving from s to next goes forward in the lifecycle.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	return s.IsValid() && next.IsValid() && s.order() < next.order()
}

func (s TaskStatus) order() int {
	switch s {
	case TaskStatusNew:
		return 0
	case TaskStatusStarted:
		return 1
	case TaskStatusCompleted:
		return 2
	default:
		return -1
	}
}

// String returns the string representation of the task status
func (s TaskStatus) String() string {
	return string(s)
}

// ParseTaskStatus parses a string into a TaskStatus
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid task status: %s", s)
	}
	return status, nil
}
