package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
)

// Action keys in their canonical order
const (
	ActionKeyIntegration = "integration"
	ActionKeyAction      = "action"
	ActionKeyArgs        = "args"
	ActionKeyWebhook     = "webhook"
)

var actionKeys = []string{ActionKeyIntegration, ActionKeyAction, ActionKeyArgs, ActionKeyWebhook}

// Action is one unit of work: which integration to call, the operation within
// it, its arguments and the channel it is dispatched through. An Action is
// immutable once constructed.
type Action struct {
	integration string
	action      string
	args        map[string]any
	webhook     string
}

// NewAction builds an Action. Integration, action and webhook must be non-empty.
// Args must be JSON-compatible; a nil map is treated as empty. Args are
// normalised through JSON so a constructed Action equals its parsed form.
func NewAction(integration, action string, args map[string]any, webhook string) (*Action, error) {
	var missing []string
	if integration == "" {
		missing = append(missing, ActionKeyIntegration)
	}
	if action == "" {
		missing = append(missing, ActionKeyAction)
	}
	if webhook == "" {
		missing = append(missing, ActionKeyWebhook)
	}
	if len(missing) > 0 {
		return nil, goerr.Wrap(ErrMissingField, "action has empty fields", goerr.V(MissingFieldsKey, missing))
	}

	normalized, err := normalizeArgs(args)
	if err != nil {
		return nil, err
	}

	return &Action{
		integration: integration,
		action:      action,
		args:        normalized,
		webhook:     webhook,
	}, nil
}

// MustNewAction is NewAction that panics on error. Intended for fixed catalogue
// entries and tests.
func MustNewAction(integration, action string, args map[string]any, webhook string) *Action {
	a, err := NewAction(integration, action, args, webhook)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *Action) Integration() string { return a.integration }
func (a *Action) Action() string      { return a.action }
func (a *Action) Webhook() string     { return a.webhook }

// Args returns a deep copy of the arguments.
func (a *Action) Args() map[string]any {
	return deepCopyValue(a.args).(map[string]any)
}

// Channel returns the dispatch channel kind of the webhook.
func (a *Action) Channel() types.ChannelKind {
	return types.ClassifyChannel(a.webhook)
}

// Equal reports field-wise equality.
func (a *Action) Equal(other *Action) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.integration == other.integration &&
		a.action == other.action &&
		a.webhook == other.webhook &&
		reflect.DeepEqual(a.args, other.args)
}

func (a *Action) String() string {
	return fmt.Sprintf("%s.%s (%s)", a.integration, a.action, a.webhook)
}

type actionJSON struct {
	Integration string         `json:"integration"`
	Action      string         `json:"action"`
	Args        map[string]any `json:"args"`
	Webhook     string         `json:"webhook"`
}

// MarshalAction encodes a as a JSON object with exactly the keys integration,
// action, args and webhook.
func MarshalAction(a *Action) ([]byte, error) {
	if a == nil {
		return nil, goerr.New("action is nil")
	}
	data, err := json.MarshalIndent(actionJSON{
		Integration: a.integration,
		Action:      a.action,
		Args:        a.args,
		Webhook:     a.webhook,
	}, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal action", goerr.V("action", a.String()))
	}
	return data, nil
}

// ParseAction decodes an action from its JSON form. Invalid JSON, a non-object
// value, wrongly typed fields or empty names yield ErrMalformedPayload; absent
// or null keys yield ErrMissingField listing every absent key.
func ParseAction(data []byte) (*Action, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, goerr.Wrap(ErrMalformedPayload, err.Error(), goerr.V(PayloadKey, truncate(string(data), 256)))
	}
	if raw == nil {
		return nil, goerr.Wrap(ErrMalformedPayload, "payload is not a JSON object", goerr.V(PayloadKey, truncate(string(data), 256)))
	}

	var missing []string
	for _, key := range actionKeys {
		v, ok := raw[key]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, goerr.Wrap(ErrMissingField, fmt.Sprintf("missing keys: %s", strings.Join(missing, ", ")), goerr.V(MissingFieldsKey, missing))
	}

	var integration, action, webhook string
	var args map[string]any
	for key, dst := range map[string]any{
		ActionKeyIntegration: &integration,
		ActionKeyAction:      &action,
		ActionKeyWebhook:     &webhook,
	} {
		if err := json.Unmarshal(raw[key], dst); err != nil {
			return nil, goerr.Wrap(ErrMalformedPayload, "field must be a string", goerr.V("field", key))
		}
	}
	dec := json.NewDecoder(bytes.NewReader(raw[ActionKeyArgs]))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return nil, goerr.Wrap(ErrMalformedPayload, "args must be a JSON object", goerr.V("field", ActionKeyArgs))
	}

	a, err := NewAction(integration, action, args, webhook)
	if err != nil {
		return nil, goerr.Wrap(ErrMalformedPayload, err.Error())
	}
	return a, nil
}

// MarshalJSON implements json.Marshaler.
func (a *Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionJSON{
		Integration: a.integration,
		Action:      a.action,
		Args:        a.args,
		Webhook:     a.webhook,
	})
}

// UnmarshalJSON implements json.Unmarshaler with the same rules as ParseAction.
func (a *Action) UnmarshalJSON(data []byte) error {
	parsed, err := ParseAction(data)
	if err != nil {
		return err
	}
	*a = *parsed
	return nil
}

// StripCodeFence removes a surrounding markdown code fence, such as the
// ```json ... ``` wrapping LLMs tend to add, and trims whitespace.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func normalizeArgs(args map[string]any) (map[string]any, error) {
	if len(args) == 0 {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, goerr.Wrap(ErrMalformedPayload, "args are not JSON-compatible", goerr.V("error", err.Error()))
	}
	var normalized map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&normalized); err != nil {
		return nil, goerr.Wrap(ErrMalformedPayload, "failed to normalize args")
	}
	return normalized, nil
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = deepCopyValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = deepCopyValue(val)
		}
		return s
	default:
		return v
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
