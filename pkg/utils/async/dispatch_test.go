package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskrelay/pkg/utils/async"
)

func TestDispatch(t *testing.T) {
	t.Run("handler outlives cancelled caller", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan error, 1)

		async.Dispatch(ctx, func(ctx context.Context) error {
			cancel()
			time.Sleep(10 * time.Millisecond)
			done <- ctx.Err()
			return nil
		})

		select {
		case err := <-done:
			gt.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("handler did not run")
		}
	})

	t.Run("handler error and panic are contained", func(t *testing.T) {
		done := make(chan struct{}, 2)

		async.Dispatch(t.Context(), func(ctx context.Context) error {
			defer func() { done <- struct{}{} }()
			return errors.New("boom")
		})
		async.Dispatch(t.Context(), func(ctx context.Context) error {
			defer func() { done <- struct{}{} }()
			panic("boom")
		})

		for range 2 {
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("handler did not run")
			}
		}
	})
}
