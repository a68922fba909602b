package local

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// Handler executes one operation of a local integration. Failed side effects are
// returned as errors; the dispatch router turns them into failed results.
type Handler interface {
	Handle(ctx context.Context, operation string, args map[string]any) (map[string]any, error)
}

// Local handler errors
var (
	ErrMissingArgument       = goerr.New("missing required argument")
	ErrInvalidArgument       = goerr.New("invalid argument")
	ErrUnsupportedOperation  = goerr.New("unsupported operation")
	ErrCommandTimedOut       = goerr.New("command timed out")
	ErrDirectoryCreateFailed = goerr.New("failed to create directory")
	ErrWriteFailed           = goerr.New("failed to write file")
	ErrFileNotFound          = goerr.New("file not found")
	ErrEditorUnavailable     = goerr.New("editor is not available")
)

// Context keys for error values
const (
	ArgumentKey  = "argument"
	OperationKey = "operation"
	PathKey      = "path"
)

// requiredString returns args[key] as a non-empty string.
func requiredString(args map[string]any, key string) (string, error) {
	v, ok, err := optionalString(args, key)
	if err != nil {
		return "", err
	}
	if !ok || v == "" {
		return "", goerr.Wrap(ErrMissingArgument, "argument is required", goerr.V(ArgumentKey, key))
	}
	return v, nil
}

// optionalString returns args[key] as a string and whether it was set.
func optionalString(args map[string]any, key string) (string, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, goerr.Wrap(ErrInvalidArgument, "argument must be a string",
			goerr.V(ArgumentKey, key),
			goerr.V("type", typeName(raw)))
	}
	return s, true, nil
}

func unsupported(integration, operation string) error {
	return goerr.Wrap(ErrUnsupportedOperation, "operation is not supported by "+integration,
		goerr.V(OperationKey, operation))
}

func typeName(v any) string {
	switch v.(type) {
	case bool:
		return "bool"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	default:
		return "number"
	}
}
