package model

import "github.com/secmon-lab/taskrelay/pkg/domain/types"

// DispatchResult is the uniform outcome of dispatching an action.
//
// Local handlers fill Output and report failed side effects through Success and
// Error instead of returning a Go error. Remote dispatch fills Body with the
// decoded JSON response.
type DispatchResult struct {
	ID      string            `json:"dispatch_id"`
	Channel string            `json:"channel"`
	Kind    types.ChannelKind `json:"-"`
	Success bool              `json:"success"`
	Output  map[string]any    `json:"output,omitempty"`
	Body    any               `json:"body,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// KindName returns the channel kind as text, for JSON responses and logs.
func (r *DispatchResult) KindName() string {
	return r.Kind.String()
}
