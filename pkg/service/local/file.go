package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/utils/logging"
)

// DefaultEditor is the command used to open files
const DefaultEditor = "code"

// File writes and opens files on the local filesystem
type File struct {
	editor string
}

// FileOption configures a File handler
type FileOption func(*File)

// WithEditor sets the command that "open" hands files to
func WithEditor(editor string) FileOption {
	return func(f *File) {
		if editor != "" {
			f.editor = editor
		}
	}
}

// NewFile creates a file handler
func NewFile(opts ...FileOption) *File {
	f := &File{editor: DefaultEditor}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Handle implements Handler. Operations are "modify" and "open".
func (f *File) Handle(ctx context.Context, operation string, args map[string]any) (map[string]any, error) {
	switch operation {
	case "modify":
		path, err := requiredString(args, "filepath")
		if err != nil {
			return nil, err
		}
		content, _, err := optionalString(args, "content")
		if err != nil {
			return nil, err
		}
		if err := f.Modify(ctx, path, content); err != nil {
			return nil, err
		}
		return map[string]any{
			"success":  true,
			"filepath": path,
			"message":  "file written: " + path,
		}, nil

	case "open":
		path, err := requiredString(args, "filepath")
		if err != nil {
			return nil, err
		}
		if err := f.Open(ctx, path); err != nil {
			return nil, err
		}
		return map[string]any{
			"success":  true,
			"filepath": path,
			"message":  "opened " + path + " with " + f.editor,
		}, nil

	default:
		return nil, unsupported("file", operation)
	}
}

// Modify creates or truncates path and writes content, creating parent
// directories as needed. The write is not atomic.
func (f *File) Modify(ctx context.Context, path, content string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return goerr.Wrap(ErrWriteFailed, err.Error(), goerr.V(PathKey, path))
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return goerr.Wrap(ErrWriteFailed, err.Error(), goerr.V(PathKey, path))
	}

	logging.From(ctx).Info("file written", "path", path, "bytes", len(content))
	return nil
}

// Open hands an existing file to the editor without waiting for it to exit.
func (f *File) Open(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return goerr.Wrap(ErrFileNotFound, "cannot open missing file", goerr.V(PathKey, path))
		}
		return goerr.Wrap(err, "failed to stat file", goerr.V(PathKey, path))
	}

	bin, err := exec.LookPath(f.editor)
	if err != nil {
		return goerr.Wrap(ErrEditorUnavailable, err.Error(), goerr.V("editor", f.editor))
	}

	cmd := exec.Command(bin, path)
	if err := cmd.Start(); err != nil {
		return goerr.Wrap(ErrEditorUnavailable, err.Error(), goerr.V("editor", f.editor))
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			logging.From(ctx).Warn("editor exited with error", "editor", f.editor, "error", err)
		}
	}()

	logging.From(ctx).Info("file opened", "path", path, "editor", f.editor)
	return nil
}
