package model

import "github.com/m-mizutani/goerr/v2"

// Codec and validation errors
var (
	ErrMalformedPayload = goerr.New("malformed action payload")
	ErrMissingField     = goerr.New("required action field is missing")
	ErrInvalidProgress  = goerr.New("progress must be between 0.0 and 1.0")
	ErrInvalidStatus    = goerr.New("invalid task status")
	ErrInvalidTaskID    = goerr.New("invalid task ID")
)

// Context keys for error values
const (
	MissingFieldsKey = "missing_fields"
	PayloadKey       = "payload"
	ProgressKey      = "progress"
	TaskIDKey        = "task_id"
)
