package dispatch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/domain/interfaces"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
	"github.com/secmon-lab/taskrelay/pkg/service/local"
	"github.com/secmon-lab/taskrelay/pkg/utils/logging"
)

// DefaultRemoteTimeout is the hard ceiling for one webhook call
const DefaultRemoteTimeout = 30 * time.Second

// Router routes actions to local handlers or remote webhooks.
//
// The local handler table is fixed when the router is built; every channel name
// outside it is remote and resolved through the ChannelResolver per call.
type Router struct {
	resolver      ChannelResolver
	handlers      map[types.ChannelKind]local.Handler
	client        *http.Client
	remoteTimeout time.Duration
	userAgent     string
	terminalOpts  []local.TerminalOption
	fileOpts      []local.FileOption
}

var _ interfaces.Dispatcher = &Router{}

// Option configures a Router
type Option func(*Router)

// WithHTTPClient sets the client used for remote dispatch
func WithHTTPClient(client *http.Client) Option {
	return func(r *Router) {
		if client != nil {
			r.client = client
		}
	}
}

// WithRemoteTimeout overrides DefaultRemoteTimeout
func WithRemoteTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.remoteTimeout = d
		}
	}
}

// WithUserAgent sets the User-Agent of webhook requests
func WithUserAgent(ua string) Option {
	return func(r *Router) {
		r.userAgent = ua
	}
}

// WithTerminalOptions configures the terminal handler
func WithTerminalOptions(opts ...local.TerminalOption) Option {
	return func(r *Router) {
		r.terminalOpts = append(r.terminalOpts, opts...)
	}
}

// WithFileOptions configures the file handler
func WithFileOptions(opts ...local.FileOption) Option {
	return func(r *Router) {
		r.fileOpts = append(r.fileOpts, opts...)
	}
}

// WithHandler replaces the handler bound to a local channel kind
func WithHandler(kind types.ChannelKind, h local.Handler) Option {
	return func(r *Router) {
		if kind.IsLocal() && h != nil {
			r.handlers[kind] = h
		}
	}
}

// New creates a Router. A nil resolver resolves nothing, so every remote
// dispatch fails with ErrUnresolvedChannel.
func New(resolver ChannelResolver, opts ...Option) *Router {
	if resolver == nil {
		resolver = MapResolver{}
	}
	r := &Router{
		resolver:      resolver,
		handlers:      make(map[types.ChannelKind]local.Handler),
		client:        &http.Client{},
		remoteTimeout: DefaultRemoteTimeout,
		userAgent:     "taskrelay",
	}
	for _, opt := range opts {
		opt(r)
	}

	if _, ok := r.handlers[types.ChannelKindTerminal]; !ok {
		r.handlers[types.ChannelKindTerminal] = local.NewTerminal(r.terminalOpts...)
	}
	if _, ok := r.handlers[types.ChannelKindFile]; !ok {
		r.handlers[types.ChannelKindFile] = local.NewFile(r.fileOpts...)
	}

	return r
}

// Dispatch executes action and returns its result.
//
// Local handler failures come back as a result with Success false; only remote
// failures (ErrUnresolvedChannel, ErrRemoteDispatchFailed) are returned as errors.
func (r *Router) Dispatch(ctx context.Context, action *model.Action) (*model.DispatchResult, error) {
	if action == nil {
		return nil, goerr.New("action is nil")
	}

	kind := action.Channel()
	result := &model.DispatchResult{
		ID:      uuid.Must(uuid.NewV7()).String(),
		Channel: action.Webhook(),
		Kind:    kind,
	}

	logger := logging.From(ctx).With(
		"dispatch_id", result.ID,
		"channel", action.Webhook(),
		"integration", action.Integration(),
		"action", action.Action(),
	)

	if handler, ok := r.handlers[kind]; ok {
		output, err := handler.Handle(logging.With(ctx, logger), action.Action(), action.Args())
		if err != nil {
			logger.Warn("local dispatch failed", "error", err)
			result.Error = err.Error()
			return result, nil
		}
		result.Output = output
		result.Success = successOf(output)
		if !result.Success {
			result.Error = "local handler reported failure"
		}
		logger.Info("local dispatch finished", "success", result.Success)
		return result, nil
	}

	url, ok := r.resolver.Resolve(action.Webhook())
	if !ok {
		return nil, goerr.Wrap(ErrUnresolvedChannel, "no webhook address for channel",
			goerr.V(ChannelKey, action.Webhook()))
	}

	payload := remotePayload{
		Integration: action.Integration(),
		Action:      action.Action(),
		Args:        action.Args(),
	}
	body, err := r.post(ctx, action.Webhook(), url, payload)
	if err != nil {
		var ge *goerr.Error
		if errors.As(err, &ge) {
			logger.Error("remote dispatch failed", "error", err, "values", ge.Values())
		} else {
			logger.Error("remote dispatch failed", "error", err)
		}
		return nil, err
	}

	result.Success = true
	result.Body = body
	logger.Info("remote dispatch finished")
	return result, nil
}

// successOf reads the "success" flag handlers put in their output. Outputs
// without the flag count as successful.
func successOf(output map[string]any) bool {
	v, ok := output["success"]
	if !ok {
		return true
	}
	b, ok := v.(bool)
	return ok && b
}
