package config

import (
	"log/slog"
	"time"

	"github.com/secmon-lab/taskrelay/pkg/service/dispatch"
	"github.com/secmon-lab/taskrelay/pkg/service/local"
	"github.com/urfave/cli/v3"
)

// Dispatch holds CLI flags for action dispatch
type Dispatch struct {
	remoteTimeout  time.Duration
	commandTimeout time.Duration
	editor         string
	autoComplete   bool
}

// Flags returns CLI flags for dispatch configuration
func (d *Dispatch) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "remote-timeout",
			Usage:       "Timeout for one webhook call",
			Value:       dispatch.DefaultRemoteTimeout,
			Category:    "Dispatch",
			Sources:     cli.EnvVars("TASKRELAY_REMOTE_TIMEOUT"),
			Destination: &d.remoteTimeout,
		},
		&cli.DurationFlag{
			Name:        "command-timeout",
			Usage:       "Timeout for one TERMINAL command",
			Value:       local.DefaultCommandTimeout,
			Category:    "Dispatch",
			Sources:     cli.EnvVars("TASKRELAY_COMMAND_TIMEOUT"),
			Destination: &d.commandTimeout,
		},
		&cli.StringFlag{
			Name:        "editor",
			Usage:       "Editor command used by FILES open",
			Value:       local.DefaultEditor,
			Category:    "Dispatch",
			Sources:     cli.EnvVars("TASKRELAY_EDITOR"),
			Destination: &d.editor,
		},
		&cli.BoolFlag{
			Name:        "auto-complete",
			Usage:       "Mark a task COMPLETED when its action dispatch succeeds",
			Category:    "Dispatch",
			Sources:     cli.EnvVars("TASKRELAY_AUTO_COMPLETE"),
			Destination: &d.autoComplete,
		},
	}
}

// AutoComplete reports whether successful starts complete the task
func (d *Dispatch) AutoComplete() bool {
	return d.autoComplete
}

func (d Dispatch) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("remote_timeout", d.remoteTimeout),
		slog.Duration("command_timeout", d.commandTimeout),
		slog.String("editor", d.editor),
		slog.Bool("auto_complete", d.autoComplete),
	)
}

// Configure builds the dispatch router
func (d *Dispatch) Configure(resolver dispatch.ChannelResolver) *dispatch.Router {
	return dispatch.New(resolver,
		dispatch.WithRemoteTimeout(d.remoteTimeout),
		dispatch.WithTerminalOptions(local.WithCommandTimeout(d.commandTimeout)),
		dispatch.WithFileOptions(local.WithEditor(d.editor)),
	)
}
