package usecase

import (
	"errors"

	"github.com/secmon-lab/taskrelay/pkg/domain/model"
)

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrTaskNotFound = errors.New("task not found")

	// Validation errors
	ErrInvalidProgress  = model.ErrInvalidProgress
	ErrInvalidStatus    = model.ErrInvalidStatus
	ErrNoFieldsProvided = errors.New("no valid fields provided")
	ErrEmptyDescription = errors.New("description is empty")

	// Status errors
	ErrTaskAlreadyStarted   = errors.New("task is already started")
	ErrTaskAlreadyCompleted = errors.New("task is already completed")

	// Dispatch errors
	ErrNoAction       = errors.New("task has no action")
	ErrDispatchFailed = errors.New("dispatch failed")

	// Other errors
	ErrTranslatorUnavailable = errors.New("translator is not configured")
	ErrDispatcherUnavailable = errors.New("dispatcher is not configured")
)

// Context keys for error values
const (
	TaskIDKey = "task_id"
	StatusKey = "status"
)
