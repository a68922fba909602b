package interfaces

import "github.com/m-mizutani/goerr/v2"

// Repository errors shared by all backends
var (
	ErrNotFound       = goerr.New("not found")
	ErrStatusConflict = goerr.New("status conflict")
)
