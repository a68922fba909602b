package translator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/taskrelay/pkg/domain/interfaces"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/utils/logging"
)

var (
	// ErrEmptyRequest is returned for blank request text; no model call is made
	ErrEmptyRequest = goerr.New("request text is empty")
	// ErrEmptyResponse is returned when the model produced no text
	ErrEmptyResponse = goerr.New("LLM returned no content")
)

// Translator turns a natural-language request into an Action using an LLM
type Translator struct {
	llmClient    gollem.LLMClient
	catalog      []Entry
	instructions string
}

var _ interfaces.Translator = &Translator{}

// Option is a functional option for Translator
type Option func(*Translator)

// WithCatalog replaces the action catalogue presented to the model
func WithCatalog(entries []Entry) Option {
	return func(t *Translator) {
		t.catalog = entries
	}
}

// WithInstructions appends free-form instructions to the system prompt
func WithInstructions(text string) Option {
	return func(t *Translator) {
		t.instructions = text
	}
}

// New creates a Translator backed by llmClient
func New(llmClient gollem.LLMClient, opts ...Option) (*Translator, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	t := &Translator{
		llmClient: llmClient,
		catalog:   DefaultCatalog(),
	}
	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// Translate asks the model for exactly one action matching text.
//
// A reply that is not a complete action object is a contract violation by the
// model and is reported as model.ErrMalformedPayload, never ErrMissingField.
func (t *Translator) Translate(ctx context.Context, text string) (*model.Action, error) {
	if strings.TrimSpace(text) == "" {
		return nil, goerr.Wrap(ErrEmptyRequest, "nothing to translate")
	}

	session, err := t.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(buildResponseSchema()),
		gollem.WithSessionSystemPrompt(buildSystemPrompt(t.catalog, t.instructions)),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.Generate(ctx, []gollem.Input{gollem.Text(text)})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content from LLM")
	}
	if resp == nil || len(resp.Texts) == 0 || strings.TrimSpace(resp.Texts[0]) == "" {
		return nil, goerr.Wrap(ErrEmptyResponse, "no action in LLM response")
	}

	raw := model.StripCodeFence(resp.Texts[0])
	action, err := model.ParseAction([]byte(raw))
	if err != nil {
		if errors.Is(err, model.ErrMissingField) {
			return nil, goerr.Wrap(model.ErrMalformedPayload, "LLM response is not a complete action",
				goerr.V(model.PayloadKey, raw),
				goerr.V("cause", err.Error()))
		}
		return nil, goerr.Wrap(err, "failed to parse LLM response", goerr.V(model.PayloadKey, raw))
	}

	logging.From(ctx).Info("translated request into action",
		"integration", action.Integration(),
		"action", action.Action(),
		"channel", action.Webhook(),
	)
	return action, nil
}

func buildSystemPrompt(catalog []Entry, instructions string) string {
	var sb strings.Builder

	sb.WriteString("You convert a user's request into exactly one action for an automation runner.\n\n")
	sb.WriteString("## Output format\n\n")
	sb.WriteString("Reply with a single JSON object and nothing else. It MUST have these keys:\n")
	sb.WriteString("- integration: the module that owns the action\n")
	sb.WriteString("- action: the operation inside that module\n")
	sb.WriteString("- args: an object of arguments for the operation (may be empty)\n")
	sb.WriteString("- webhook: the channel name that executes the action\n\n")
	sb.WriteString("Pick the action from the catalogue below. Use the listed webhook value verbatim.\n\n")
	sb.WriteString("## Catalogue\n\n")

	for _, e := range catalog {
		fmt.Fprintf(&sb, "### %s.%s (webhook: %s)\n", e.Integration, e.Action, e.Webhook)
		if e.Description != "" {
			fmt.Fprintf(&sb, "%s\n", e.Description)
		}
		names := make([]string, 0, len(e.Args))
		for name := range e.Args {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "- %s: %s\n", name, e.Args[name])
		}
		sb.WriteString("\n")
	}

	if instructions != "" {
		sb.WriteString("## Additional instructions\n\n")
		sb.WriteString(instructions)
		sb.WriteString("\n")
	}

	return sb.String()
}

func buildResponseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "Action",
		Description: "A single action for the automation runner",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"integration": {
				Type:        gollem.TypeString,
				Description: "Module that owns the action",
			},
			"action": {
				Type:        gollem.TypeString,
				Description: "Operation inside the module",
			},
			"args": {
				Type:        gollem.TypeObject,
				Description: "Arguments of the operation",
			},
			"webhook": {
				Type:        gollem.TypeString,
				Description: "Channel that executes the action",
			},
		},
	}
}
