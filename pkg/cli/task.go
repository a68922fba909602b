package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/cli/config"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
	"github.com/secmon-lab/taskrelay/pkg/usecase"
	"github.com/secmon-lab/taskrelay/pkg/utils/logging"
	"github.com/secmon-lab/taskrelay/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

var errTaskIDRequired = errors.New("task ID argument is required")

func cmdTask() *cli.Command {
	var rt runtimeConfig

	// withUseCases builds the use cases for one subcommand run and closes the
	// repository afterwards.
	withUseCases := func(fn func(ctx context.Context, c *cli.Command, uc *usecase.UseCases) error) cli.ActionFunc {
		return func(ctx context.Context, c *cli.Command) error {
			warnIfEphemeral(ctx, &rt.repo)
			uc, repo, err := rt.build(ctx)
			if err != nil {
				return err
			}
			defer safe.Close(ctx, repo)
			return fn(ctx, c, uc)
		}
	}

	return &cli.Command{
		Name:    "task",
		Aliases: []string{"t"},
		Usage:   "Manage tasks directly on the repository",
		Flags:   rt.Flags(),
		Commands: []*cli.Command{
			cmdTaskList(withUseCases),
			cmdTaskShow(withUseCases),
			cmdTaskCreate(withUseCases),
			cmdTaskStart(withUseCases),
			cmdTaskComplete(withUseCases),
			cmdTaskDelete(withUseCases),
			cmdTaskPurge(withUseCases),
		},
	}
}

// warnIfEphemeral flags a backend whose tasks vanish when the command exits
func warnIfEphemeral(ctx context.Context, repo *config.Repository) bool {
	if repo.Persistent() {
		return false
	}
	logging.From(ctx).Warn("task commands on the in-memory backend do not persist between runs, use --repository-backend firestore",
		"backend", repo.Backend())
	return true
}

type useCaseAction func(fn func(ctx context.Context, c *cli.Command, uc *usecase.UseCases) error) cli.ActionFunc

func taskIDArg(c *cli.Command) (model.TaskID, error) {
	if c.Args().Len() == 0 {
		return 0, errTaskIDRequired
	}
	return model.ParseTaskID(c.Args().First())
}

func cmdTaskList(with useCaseAction) *cli.Command {
	var status string

	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List tasks, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "status",
				Usage:       "Only list tasks in this status [NEW|STARTED|COMPLETED]",
				Destination: &status,
			},
		},
		Action: with(func(ctx context.Context, c *cli.Command, uc *usecase.UseCases) error {
			var tasks []*model.Task
			var err error
			if status != "" {
				tasks, err = uc.Task.ListTasksByStatus(ctx, types.TaskStatus(status))
			} else {
				tasks, err = uc.Task.ListTasks(ctx)
			}
			if err != nil {
				return err
			}
			renderTaskList(os.Stdout, tasks)
			return nil
		}),
	}
}

func cmdTaskShow(with useCaseAction) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one task",
		ArgsUsage: "<task-id>",
		Action: with(func(ctx context.Context, c *cli.Command, uc *usecase.UseCases) error {
			id, err := taskIDArg(c)
			if err != nil {
				return err
			}
			task, err := uc.Task.GetTask(ctx, id)
			if err != nil {
				return err
			}
			if task == nil {
				return goerr.Wrap(usecase.ErrTaskNotFound, "no such task", goerr.V(usecase.TaskIDKey, id))
			}
			renderTask(os.Stdout, task)
			return nil
		}),
	}
}

func cmdTaskCreate(with useCaseAction) *cli.Command {
	var (
		description string
		actionJSON  string
		actionFile  string
		translate   bool
		status      string
		progress    float64
	)

	return &cli.Command{
		Name:  "create",
		Usage: "Create a task",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "description",
				Aliases:     []string{"d"},
				Usage:       "Task description",
				Required:    true,
				Destination: &description,
			},
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
			&cli.BoolFlag{
				Name:        "translate",
				Usage:       "Derive the action from the description with the translator",
				Destination: &translate,
			},
			&cli.StringFlag{
				Name:        "status",
				Usage:       "Initial status",
				Value:       string(types.TaskStatusNew),
				Destination: &status,
			},
			&cli.FloatFlag{
				Name:        "progress",
				Usage:       "Initial progress in [0, 1]",
				Destination: &progress,
			},
		},
		Action: with(func(ctx context.Context, c *cli.Command, uc *usecase.UseCases) error {
			action, err := loadAction(actionJSON, actionFile)
			if err != nil {
				return err
			}

			var task *model.Task
			switch {
			case action != nil && translate:
				return goerr.New("--translate cannot be combined with an explicit action")
			case translate:
				task, err = uc.Task.CreateTaskFromText(ctx, description, types.TaskStatus(status), progress)
			default:
				task, err = uc.Task.CreateTask(ctx, description, action, types.TaskStatus(status), progress)
			}
			if err != nil {
				return err
			}
			renderTask(os.Stdout, task)
			return nil
		}),
	}
}

func cmdTaskStart(with useCaseAction) *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Start a task and dispatch its action",
		ArgsUsage: "<task-id>",
		Action: with(func(ctx context.Context, c *cli.Command, uc *usecase.UseCases) error {
			id, err := taskIDArg(c)
			if err != nil {
				return err
			}
			result, err := uc.Task.StartTask(ctx, id)
			if result != nil {
				renderTask(os.Stdout, result.Task)
				renderDispatchResult(os.Stdout, result.Dispatch)
			}
			return err
		}),
	}
}

func cmdTaskComplete(with useCaseAction) *cli.Command {
	return &cli.Command{
		Name:      "complete",
		Usage:     "Mark a task COMPLETED",
		ArgsUsage: "<task-id>",
		Action: with(func(ctx context.Context, c *cli.Command, uc *usecase.UseCases) error {
			id, err := taskIDArg(c)
			if err != nil {
				return err
			}
			task, err := uc.Task.CompleteTask(ctx, id)
			if err != nil {
				return err
			}
			renderTask(os.Stdout, task)
			return nil
		}),
	}
}

func cmdTaskDelete(with useCaseAction) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a task",
		ArgsUsage: "<task-id>",
		Action: with(func(ctx context.Context, c *cli.Command, uc *usecase.UseCases) error {
			id, err := taskIDArg(c)
			if err != nil {
				return err
			}
			deleted, err := uc.Task.DeleteTask(ctx, id)
			if err != nil {
				return err
			}
			if !deleted {
				return goerr.Wrap(usecase.ErrTaskNotFound, "no such task", goerr.V(usecase.TaskIDKey, id))
			}
			_, _ = fmt.Fprintf(os.Stdout, "deleted task #%d\n", id)
			return nil
		}),
	}
}

func cmdTaskPurge(with useCaseAction) *cli.Command {
	var force bool

	return &cli.Command{
		Name:  "purge",
		Usage: "Delete every task",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "force",
				Usage:       "Confirm deletion of all tasks",
				Destination: &force,
			},
		},
		Action: with(func(ctx context.Context, c *cli.Command, uc *usecase.UseCases) error {
			if !force {
				return goerr.New("refusing to delete all tasks without --force")
			}
			n, err := purgeTasks(ctx, uc.Task)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(os.Stdout, "deleted %d task(s)\n", n)
			return nil
		}),
	}
}

func purgeTasks(ctx context.Context, tasks *usecase.TaskUseCase) (int, error) {
	list, err := tasks.ListTasks(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, t := range list {
		deleted, err := tasks.DeleteTask(ctx, t.ID)
		if err != nil {
			return n, goerr.Wrap(err, "failed to delete task", goerr.V(usecase.TaskIDKey, t.ID))
		}
		if deleted {
			n++
		}
	}
	return n, nil
}
