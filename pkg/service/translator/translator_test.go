package translator_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/mock"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
	"github.com/secmon-lab/taskrelay/pkg/service/translator"
)

// newLLMClient returns a client whose sessions all answer with reply or err
func newLLMClient(reply string, err error) (*mock.LLMClientMock, *mock.SessionMock) {
	session := &mock.SessionMock{
		GenerateFunc: func(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
			if err != nil {
				return nil, err
			}
			return &gollem.Response{Texts: []string{reply}}, nil
		},
	}
	client := &mock.LLMClientMock{
		NewSessionFunc: func(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
			return session, nil
		},
	}
	return client, session
}

func TestNew_RequiresLLMClient(t *testing.T) {
	_, err := translator.New(nil)
	gt.Value(t, err).NotNil()
}

func TestTranslate(t *testing.T) {
	ctx := context.Background()

	t.Run("parses a plain JSON reply", func(t *testing.T) {
		llm, session := newLLMClient(`{"integration":"terminal","action":"execute","args":{"command":"ls"},"webhook":"TERMINAL"}`, nil)
		tr, err := translator.New(llm)
		gt.NoError(t, err).Required()

		action, err := tr.Translate(ctx, "list the files here")
		gt.NoError(t, err).Required()
		gt.Value(t, action.Integration()).Equal("terminal")
		gt.Value(t, action.Action()).Equal("execute")
		gt.Value(t, action.Args()).Equal(map[string]any{"command": "ls"})
		gt.Value(t, action.Channel()).Equal(types.ChannelKindTerminal)
		gt.Array(t, llm.NewSessionCalls()).Length(1)
		gt.Array(t, session.GenerateCalls()).Length(1)
		gt.Array(t, session.GenerateCalls()[0].Input).Length(1)
	})

	t.Run("strips a json code fence", func(t *testing.T) {
		llm, _ := newLLMClient("```json\n{\"integration\":\"notion\",\"action\":\"create_page\",\"args\":{\"page_name\":\"Essay\"},\"webhook\":\"NOTION\"}\n```", nil)
		tr, err := translator.New(llm)
		gt.NoError(t, err).Required()

		action, err := tr.Translate(ctx, "write an essay page")
		gt.NoError(t, err).Required()
		gt.Value(t, action.Webhook()).Equal("NOTION")
	})

	t.Run("missing keys are malformed", func(t *testing.T) {
		llm, _ := newLLMClient(`{"integration":"notion","action":"create_page"}`, nil)
		tr, err := translator.New(llm)
		gt.NoError(t, err).Required()

		_, err = tr.Translate(ctx, "something")
		gt.Error(t, err).Is(model.ErrMalformedPayload)
		gt.Bool(t, errors.Is(err, model.ErrMissingField)).False()
	})

	t.Run("non JSON reply is malformed", func(t *testing.T) {
		llm, _ := newLLMClient("Sure! I will do that.", nil)
		tr, err := translator.New(llm)
		gt.NoError(t, err).Required()

		_, err = tr.Translate(ctx, "something")
		gt.Error(t, err).Is(model.ErrMalformedPayload)
	})

	t.Run("empty reply", func(t *testing.T) {
		llm, _ := newLLMClient("  ", nil)
		tr, err := translator.New(llm)
		gt.NoError(t, err).Required()

		_, err = tr.Translate(ctx, "something")
		gt.Error(t, err).Is(translator.ErrEmptyResponse)
	})

	t.Run("LLM failure is propagated", func(t *testing.T) {
		cause := errors.New("quota exceeded")
		llm, _ := newLLMClient("", cause)
		tr, err := translator.New(llm)
		gt.NoError(t, err).Required()

		_, err = tr.Translate(ctx, "something")
		gt.Error(t, err).Is(cause)
	})

	t.Run("empty request is rejected before calling LLM", func(t *testing.T) {
		llm, session := newLLMClient("", nil)
		tr, err := translator.New(llm)
		gt.NoError(t, err).Required()

		_, err = tr.Translate(ctx, "   ")
		gt.Error(t, err).Is(translator.ErrEmptyRequest)
		gt.Array(t, llm.NewSessionCalls()).Length(0)
		gt.Array(t, session.GenerateCalls()).Length(0)
	})
}

func TestBuildSystemPrompt(t *testing.T) {
	t.Run("lists the catalogue", func(t *testing.T) {
		prompt := translator.BuildSystemPrompt(translator.DefaultCatalog(), "")
		gt.String(t, prompt).Contains("integration")
		gt.String(t, prompt).Contains("webhook")
		gt.String(t, prompt).Contains("terminal.execute (webhook: TERMINAL)")
		gt.String(t, prompt).Contains("file.modify (webhook: FILES)")
		gt.String(t, prompt).Contains("notion.create_page (webhook: NOTION)")
		gt.String(t, prompt).Contains("- working_dir:")
	})

	t.Run("appends instructions", func(t *testing.T) {
		prompt := translator.BuildSystemPrompt(nil, "Prefer Notion for notes")
		gt.String(t, prompt).Contains("Prefer Notion for notes")
	})
}

func TestWithCatalog(t *testing.T) {
	llm, _ := newLLMClient(`{"integration":"jira","action":"create","args":{},"webhook":"JIRA"}`, nil)
	tr, err := translator.New(llm, translator.WithCatalog([]translator.Entry{
		{Integration: "jira", Action: "create", Webhook: "JIRA"},
	}))
	gt.NoError(t, err).Required()

	action, err := tr.Translate(context.Background(), "file a ticket")
	gt.NoError(t, err).Required()
	gt.Value(t, action.Channel()).Equal(types.ChannelKindRemote)
}

func TestTranslate_WithRealGemini(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT not set")
	}
	location := os.Getenv("TEST_GEMINI_LOCATION")
	if location == "" {
		t.Skip("TEST_GEMINI_LOCATION not set")
	}

	ctx := context.Background()
	llmClient, err := gemini.New(ctx, projectID, location)
	gt.NoError(t, err).Required()

	tr, err := translator.New(llmClient)
	gt.NoError(t, err).Required()

	action, err := tr.Translate(ctx, "Run `ls -la` in /tmp")
	gt.NoError(t, err).Required()
	gt.Value(t, action.Webhook()).Equal(types.ChannelTerminal)
}
