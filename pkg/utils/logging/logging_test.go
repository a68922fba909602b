package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskrelay/pkg/utils/logging"
)

func TestFrom(t *testing.T) {
	t.Run("returns default when context has no logger", func(t *testing.T) {
		gt.Value(t, logging.From(context.Background())).Equal(logging.Default())
	})

	t.Run("returns logger stored in context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		ctx := logging.With(context.Background(), logger)

		logging.From(ctx).Info("hello")
		gt.String(t, buf.String()).Contains("hello")
	})
}

func TestSetDefault(t *testing.T) {
	orig := logging.Default()
	t.Cleanup(func() { logging.SetDefault(orig) })

	var buf bytes.Buffer
	logging.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	logging.Default().Info("replaced")
	gt.String(t, buf.String()).Contains("replaced")

	logging.SetDefault(nil)
	logging.Default().Info("still replaced")
	gt.String(t, buf.String()).Contains("still replaced")
}
