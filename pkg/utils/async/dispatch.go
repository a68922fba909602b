package async

import (
	"context"

	"github.com/secmon-lab/taskrelay/pkg/utils/logging"
)

// Dispatch runs handler in a new goroutine. The handler receives a context that
// keeps the caller's logger and values but is detached from its cancellation, so
// work started by an HTTP request outlives the request.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.WithoutCancel(ctx), logging.From(ctx))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			logging.From(bgCtx).Error("async handler failed", "error", err)
		}
	}()
}
