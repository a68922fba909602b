package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/cli/config"
	"github.com/secmon-lab/taskrelay/pkg/domain/interfaces"
	"github.com/secmon-lab/taskrelay/pkg/usecase"
	"github.com/secmon-lab/taskrelay/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// runtimeConfig bundles the configuration shared by every command that needs
// the task lifecycle: storage, translation and dispatch.
type runtimeConfig struct {
	repo     config.Repository
	gemini   config.Gemini
	channel  config.Channel
	dispatch config.Dispatch
}

func (x *runtimeConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.gemini.Flags()...)
	flags = append(flags, x.channel.Flags()...)
	flags = append(flags, x.dispatch.Flags()...)
	return flags
}

// build wires the use cases. The caller must close the returned repository.
func (x *runtimeConfig) build(ctx context.Context) (*usecase.UseCases, interfaces.Repository, error) {
	repo, err := x.repo.Configure(ctx)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to initialize repository")
	}

	resolver, err := x.channel.Configure()
	if err != nil {
		_ = repo.Close()
		return nil, nil, goerr.Wrap(err, "failed to configure channels")
	}

	opts := []usecase.Option{
		usecase.WithDispatcher(x.dispatch.Configure(resolver)),
		usecase.WithAutoComplete(x.dispatch.AutoComplete()),
	}

	translator, err := x.gemini.Configure(ctx)
	if err != nil {
		_ = repo.Close()
		return nil, nil, goerr.Wrap(err, "failed to configure translator")
	}
	if translator != nil {
		opts = append(opts, usecase.WithTranslator(translator))
		logging.From(ctx).Info("Translator enabled", "gemini", x.gemini.LogAttrs())
	} else {
		logging.From(ctx).Info("Gemini project not configured, tasks need an explicit action")
	}

	return usecase.New(repo, opts...), repo, nil
}
