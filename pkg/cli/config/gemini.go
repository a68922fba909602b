package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/secmon-lab/taskrelay/pkg/domain/interfaces"
	"github.com/secmon-lab/taskrelay/pkg/service/translator"
	"github.com/urfave/cli/v3"
)

// Gemini holds configuration for the Gemini-backed translator
type Gemini struct {
	projectID    string
	location     string
	instructions string
}

// Flags returns CLI flags for Gemini configuration
func (g *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Category:    "Gemini",
			Sources:     cli.EnvVars("TASKRELAY_GEMINI_PROJECT"),
			Destination: &g.projectID,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Value:       "us-central1",
			Category:    "Gemini",
			Sources:     cli.EnvVars("TASKRELAY_GEMINI_LOCATION"),
			Destination: &g.location,
		},
		&cli.StringFlag{
			Name:        "translator-instructions",
			Usage:       "Extra instructions appended to the translator system prompt",
			Category:    "Gemini",
			Sources:     cli.EnvVars("TASKRELAY_TRANSLATOR_INSTRUCTIONS"),
			Destination: &g.instructions,
		},
	}
}

// LogAttrs returns log attributes for the Gemini configuration
func (g *Gemini) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("project_id", g.projectID),
		slog.String("location", g.location),
	}
}

// Configure creates the translator from the configured flags.
// Returns nil if projectID is not configured (free-text task creation is disabled).
func (g *Gemini) Configure(ctx context.Context) (interfaces.Translator, error) {
	if g.projectID == "" {
		return nil, nil
	}

	client, err := gemini.New(ctx, g.projectID, g.location)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}

	var opts []translator.Option
	if g.instructions != "" {
		opts = append(opts, translator.WithInstructions(g.instructions))
	}

	tr, err := translator.New(client, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create translator")
	}
	return tr, nil
}
