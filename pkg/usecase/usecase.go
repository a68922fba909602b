package usecase

import (
	"github.com/secmon-lab/taskrelay/pkg/domain/interfaces"
)

type UseCases struct {
	repo         interfaces.Repository
	translator   interfaces.Translator
	dispatcher   interfaces.Dispatcher
	autoComplete bool
	Task         *TaskUseCase
}

type Option func(*UseCases)

// WithTranslator enables creating tasks from free text
func WithTranslator(t interfaces.Translator) Option {
	return func(uc *UseCases) {
		uc.translator = t
	}
}

// WithDispatcher sets the router that executes task actions
func WithDispatcher(d interfaces.Dispatcher) Option {
	return func(uc *UseCases) {
		uc.dispatcher = d
	}
}

// WithAutoComplete marks a task COMPLETED after its action dispatched
// successfully. Off by default: completion is left to the caller.
func WithAutoComplete(enabled bool) Option {
	return func(uc *UseCases) {
		uc.autoComplete = enabled
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo: repo,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Task = NewTaskUseCase(repo, uc.translator, uc.dispatcher, uc.autoComplete)

	return uc
}

// HasTranslator reports whether free-text task creation is available
func (uc *UseCases) HasTranslator() bool {
	return uc.translator != nil
}
