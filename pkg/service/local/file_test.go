package local_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskrelay/pkg/service/local"
)

func TestFile_Modify(t *testing.T) {
	ctx := context.Background()

	t.Run("creates parents and writes content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a", "b", "c.txt")
		out, err := local.NewFile().Handle(ctx, "modify", map[string]any{
			"filepath": path,
			"content":  "hello",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, out["success"]).Equal(true)
		gt.Value(t, out["filepath"]).Equal(path)

		data, err := os.ReadFile(path)
		gt.NoError(t, err).Required()
		gt.Value(t, string(data)).Equal("hello")
	})

	t.Run("overwrites existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "x.txt")
		gt.NoError(t, os.WriteFile(path, []byte("a much longer original content"), 0o600)).Required()

		f := local.NewFile()
		gt.NoError(t, f.Modify(ctx, path, "short")).Required()

		data, err := os.ReadFile(path)
		gt.NoError(t, err).Required()
		gt.Value(t, string(data)).Equal("short")
	})

	t.Run("content defaults to empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.txt")
		_, err := local.NewFile().Handle(ctx, "modify", map[string]any{"filepath": path})
		gt.NoError(t, err).Required()

		data, err := os.ReadFile(path)
		gt.NoError(t, err).Required()
		gt.Number(t, len(data)).Equal(0)
	})

	t.Run("missing filepath", func(t *testing.T) {
		_, err := local.NewFile().Handle(ctx, "modify", map[string]any{"content": "x"})
		gt.Error(t, err).Is(local.ErrMissingArgument)
	})

	t.Run("write failure", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		gt.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600)).Required()

		err := local.NewFile().Modify(ctx, filepath.Join(blocker, "child.txt"), "x")
		gt.Error(t, err).Is(local.ErrWriteFailed)
	})
}

func TestFile_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		_, err := local.NewFile().Handle(ctx, "open", map[string]any{
			"filepath": "/nonexistent/path/file.txt",
		})
		gt.Error(t, err).Is(local.ErrFileNotFound)
	})

	t.Run("editor unavailable", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "f.txt")
		gt.NoError(t, os.WriteFile(path, []byte("x"), 0o600)).Required()

		f := local.NewFile(local.WithEditor("nonexistent_editor_xyz_123"))
		_, err := f.Handle(ctx, "open", map[string]any{"filepath": path})
		gt.Error(t, err).Is(local.ErrEditorUnavailable)
	})

	t.Run("hands file to editor", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("relies on the true command")
		}
		path := filepath.Join(t.TempDir(), "f.txt")
		gt.NoError(t, os.WriteFile(path, []byte("x"), 0o600)).Required()

		f := local.NewFile(local.WithEditor("true"))
		out, err := f.Handle(ctx, "open", map[string]any{"filepath": path})
		gt.NoError(t, err).Required()
		gt.Value(t, out["success"]).Equal(true)
	})

	t.Run("unsupported operation", func(t *testing.T) {
		_, err := local.NewFile().Handle(ctx, "delete", map[string]any{"filepath": "x"})
		gt.Error(t, err).Is(local.ErrUnsupportedOperation)
	})
}
