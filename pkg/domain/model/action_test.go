package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
)

func TestNewAction(t *testing.T) {
	t.Run("builds action with all fields", func(t *testing.T) {
		a, err := model.NewAction("notion", "create_page", map[string]any{
			"page_name": "Essay",
		}, "NOTION")
		gt.NoError(t, err).Required()

		gt.Value(t, a.Integration()).Equal("notion")
		gt.Value(t, a.Action()).Equal("create_page")
		gt.Value(t, a.Webhook()).Equal("NOTION")
		gt.Value(t, a.Args()).Equal(map[string]any{"page_name": "Essay"})
		gt.Value(t, a.Channel()).Equal(types.ChannelKindRemote)
	})

	t.Run("nil args become empty map", func(t *testing.T) {
		a, err := model.NewAction("terminal", "execute", nil, types.ChannelTerminal)
		gt.NoError(t, err).Required()
		gt.Value(t, a.Args()).Equal(map[string]any{})
	})

	t.Run("empty fields fail construction", func(t *testing.T) {
		a, err := model.NewAction("", "execute", nil, "")
		gt.Value(t, a).Nil()
		gt.Error(t, err).Is(model.ErrMissingField)

		var ge *goerr.Error
		gt.Bool(t, errors.As(err, &ge)).True()
		gt.Value(t, ge.Values()[model.MissingFieldsKey]).Equal([]string{"integration", "webhook"})
	})

	t.Run("non JSON args fail construction", func(t *testing.T) {
		_, err := model.NewAction("x", "y", map[string]any{"ch": make(chan int)}, "Z")
		gt.Error(t, err).Is(model.ErrMalformedPayload)
	})

	t.Run("args returned are a copy", func(t *testing.T) {
		a := model.MustNewAction("x", "y", map[string]any{"nested": map[string]any{"k": "v"}}, "Z")
		args := a.Args()
		args["nested"].(map[string]any)["k"] = "changed"
		gt.Value(t, a.Args()["nested"]).Equal(map[string]any{"k": "v"})
	})
}

func TestActionCodec_RoundTrip(t *testing.T) {
	actions := []*model.Action{
		model.MustNewAction("terminal", "execute", map[string]any{
			"command":     "echo hi",
			"working_dir": "/tmp",
		}, types.ChannelTerminal),
		model.MustNewAction("file", "modify", map[string]any{
			"filepath": "/tmp/a.txt",
			"content":  "line1\nline2",
		}, types.ChannelFile),
		model.MustNewAction("notion", "search_page", map[string]any{
			"query": "essay",
			"limit": 10,
			"ratio": 0.25,
			"tags":  []any{"a", "b"},
			"deep":  map[string]any{"flag": true, "none": nil},
		}, "NOTION"),
		model.MustNewAction("notion", "list", nil, "NOTION"),
	}

	for _, a := range actions {
		t.Run(a.String(), func(t *testing.T) {
			data, err := model.MarshalAction(a)
			gt.NoError(t, err).Required()

			parsed, err := model.ParseAction(data)
			gt.NoError(t, err).Required()
			gt.Bool(t, parsed.Equal(a)).True()
		})
	}
}

func TestMarshalAction_Keys(t *testing.T) {
	a := model.MustNewAction("notion", "create_page", map[string]any{"page_name": "x"}, "NOTION")
	data, err := model.MarshalAction(a)
	gt.NoError(t, err).Required()

	var m map[string]any
	gt.NoError(t, json.Unmarshal(data, &m)).Required()
	gt.Number(t, len(m)).Equal(4)
	for _, key := range []string{"integration", "action", "args", "webhook"} {
		_, ok := m[key]
		gt.Bool(t, ok).True()
	}
}

func TestParseAction_Errors(t *testing.T) {
	t.Run("invalid JSON", func(t *testing.T) {
		_, err := model.ParseAction([]byte(`{"integration": `))
		gt.Error(t, err).Is(model.ErrMalformedPayload)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := model.ParseAction([]byte(`["a"]`))
		gt.Error(t, err).Is(model.ErrMalformedPayload)

		_, err = model.ParseAction([]byte(`null`))
		gt.Error(t, err).Is(model.ErrMalformedPayload)
	})

	t.Run("missing keys are all named", func(t *testing.T) {
		_, err := model.ParseAction([]byte(`{"integration":"notion","args":{}}`))
		gt.Error(t, err).Is(model.ErrMissingField)

		var ge *goerr.Error
		gt.Bool(t, errors.As(err, &ge)).True()
		gt.Value(t, ge.Values()[model.MissingFieldsKey]).Equal([]string{"action", "webhook"})
		gt.String(t, err.Error()).Contains("missing keys: action, webhook")
	})

	t.Run("null counts as missing", func(t *testing.T) {
		_, err := model.ParseAction([]byte(`{"integration":"n","action":"a","args":null,"webhook":"W"}`))
		gt.Error(t, err).Is(model.ErrMissingField)
	})

	t.Run("args must be an object", func(t *testing.T) {
		_, err := model.ParseAction([]byte(`{"integration":"n","action":"a","args":[1],"webhook":"W"}`))
		gt.Error(t, err).Is(model.ErrMalformedPayload)
	})

	t.Run("names must be strings", func(t *testing.T) {
		_, err := model.ParseAction([]byte(`{"integration":1,"action":"a","args":{},"webhook":"W"}`))
		gt.Error(t, err).Is(model.ErrMalformedPayload)
	})

	t.Run("empty names are malformed", func(t *testing.T) {
		_, err := model.ParseAction([]byte(`{"integration":"","action":"a","args":{},"webhook":"W"}`))
		gt.Error(t, err).Is(model.ErrMalformedPayload)
	})
}

func TestAction_JSONEmbedding(t *testing.T) {
	type wrapper struct {
		Action *model.Action `json:"action"`
	}

	in := wrapper{Action: model.MustNewAction("file", "open", map[string]any{"filepath": "/tmp/x"}, types.ChannelFile)}
	data, err := json.Marshal(in)
	gt.NoError(t, err).Required()

	var out wrapper
	gt.NoError(t, json.Unmarshal(data, &out)).Required()
	gt.Bool(t, out.Action.Equal(in.Action)).True()

	var empty wrapper
	gt.NoError(t, json.Unmarshal([]byte(`{"action":null}`), &empty)).Required()
	gt.Value(t, empty.Action).Nil()

	gt.Error(t, json.Unmarshal([]byte(`{"action":{"integration":"x"}}`), &out))
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```\n", want: `{"a":1}`},
		{name: "single line fence", in: "```json{\"a\":1}```", want: `{"a":1}`},
		{name: "surrounding whitespace", in: "  \n```json\n{}\n```  ", want: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, model.StripCodeFence(tt.in)).Equal(tt.want)
		})
	}
}
