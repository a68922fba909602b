package local

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/utils/logging"
)

// DefaultCommandTimeout is the hard ceiling for a terminal command
const DefaultCommandTimeout = 60 * time.Second

// Terminal runs shell commands
type Terminal struct {
	timeout time.Duration
}

// TerminalOption configures a Terminal
type TerminalOption func(*Terminal)

// WithCommandTimeout overrides DefaultCommandTimeout
func WithCommandTimeout(d time.Duration) TerminalOption {
	return func(t *Terminal) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// NewTerminal creates a terminal handler
func NewTerminal(opts ...TerminalOption) *Terminal {
	t := &Terminal{timeout: DefaultCommandTimeout}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CommandResult is the captured outcome of one command
type CommandResult struct {
	Command    string
	WorkingDir string
	ReturnCode int
	Stdout     string
	Stderr     string
}

// Success reports whether the command exited with code 0
func (r *CommandResult) Success() bool {
	return r.ReturnCode == 0
}

// Map returns the result in its wire form
func (r *CommandResult) Map() map[string]any {
	return map[string]any{
		"success":     r.Success(),
		"command":     r.Command,
		"working_dir": r.WorkingDir,
		"return_code": r.ReturnCode,
		"stdout":      r.Stdout,
		"stderr":      r.Stderr,
	}
}

// Handle implements Handler. The only operation is "execute".
func (t *Terminal) Handle(ctx context.Context, operation string, args map[string]any) (map[string]any, error) {
	if operation != "execute" {
		return nil, unsupported("terminal", operation)
	}

	command, err := requiredString(args, "command")
	if err != nil {
		return nil, err
	}
	workingDir, _, err := optionalString(args, "working_dir")
	if err != nil {
		return nil, err
	}

	result, err := t.Execute(ctx, command, workingDir)
	if err != nil {
		return nil, err
	}
	return result.Map(), nil
}

// Execute runs command through the shell in workingDir, creating the directory
// if needed. A non-zero exit code is reported in the result, not as an error.
// The timeout is a ceiling the caller cannot shorten by cancelling ctx.
func (t *Terminal) Execute(ctx context.Context, command, workingDir string) (*CommandResult, error) {
	if command == "" {
		return nil, goerr.Wrap(ErrMissingArgument, "argument is required", goerr.V(ArgumentKey, "command"))
	}

	if workingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get current directory")
		}
		workingDir = wd
	}
	if err := os.MkdirAll(workingDir, 0o755); err != nil {
		return nil, goerr.Wrap(ErrDirectoryCreateFailed, err.Error(), goerr.V(PathKey, workingDir))
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()

	cmd := shellCommand(runCtx, command)
	cmd.Dir = workingDir
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger := logging.From(ctx)
	logger.Info("running command", "command", command, "working_dir", workingDir)

	started := time.Now()
	runErr := cmd.Run()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, goerr.Wrap(ErrCommandTimedOut, "command exceeded its time limit",
			goerr.V("command", command),
			goerr.V("timeout", t.timeout.String()))
	}

	result := &CommandResult{
		Command:    command,
		WorkingDir: workingDir,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ReturnCode = exitErr.ExitCode()
		} else {
			// The shell itself could not be started
			result.ReturnCode = -1
			result.Stderr += runErr.Error()
		}
	}

	logger.Info("command finished",
		"command", command,
		"return_code", result.ReturnCode,
		"duration", time.Since(started))

	return result, nil
}
