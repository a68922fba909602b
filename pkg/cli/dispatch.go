package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/usecase"
	"github.com/secmon-lab/taskrelay/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// loadAction reads an action from inline JSON or a file. Both empty means no action.
func loadAction(inline, path string) (*model.Action, error) {
	if inline != "" && path != "" {
		return nil, goerr.New("--action-json and --action-file are mutually exclusive")
	}

	var data []byte
	switch {
	case inline != "":
		data = []byte(inline)
	case path != "":
		// #nosec G304 - path is expected to be provided by CLI argument
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read action file", goerr.V("path", path))
		}
		data = raw
	default:
		return nil, nil
	}

	action, err := model.ParseAction(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse action")
	}
	return action, nil
}

func cmdDispatch() *cli.Command {
	var rt runtimeConfig
	var actionJSON string
	var actionFile string

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "action-json",
			Usage:       "Action as a JSON object",
			Destination: &actionJSON,
		},
		&cli.StringFlag{
			Name:        "action-file",
			Usage:       "Path to a file holding the action JSON",
			Destination: &actionFile,
		},
	}
	flags = append(flags, rt.Flags()...)

	return &cli.Command{
		Name:    "dispatch",
		Aliases: []string{"d"},
		Usage:   "Dispatch a single action without a task",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			action, err := loadAction(actionJSON, actionFile)
			if err != nil {
				return err
			}
			if action == nil {
				return goerr.New("one of --action-json or --action-file is required")
			}

			uc, repo, err := rt.build(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)

			return dispatchAction(ctx, uc, action)
		},
	}
}

func dispatchAction(ctx context.Context, uc *usecase.UseCases, action *model.Action) error {
	result, err := uc.Task.Dispatch(ctx, action)
	if err != nil {
		return err
	}
	renderDispatchResult(os.Stdout, result)
	if !result.Success {
		return goerr.Wrap(usecase.ErrDispatchFailed, "action reported failure",
			goerr.V("action", action.String()),
			goerr.V("reason", result.Error))
	}
	return nil
}
