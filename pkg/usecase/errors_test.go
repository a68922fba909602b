package usecase_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/usecase"
)

func TestErrors_SentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrTaskNotFound", usecase.ErrTaskNotFound},
		{"ErrNoFieldsProvided", usecase.ErrNoFieldsProvided},
		{"ErrTaskAlreadyStarted", usecase.ErrTaskAlreadyStarted},
		{"ErrTaskAlreadyCompleted", usecase.ErrTaskAlreadyCompleted},
		{"ErrNoAction", usecase.ErrNoAction},
		{"ErrDispatchFailed", usecase.ErrDispatchFailed},
		{"ErrTranslatorUnavailable", usecase.ErrTranslatorUnavailable},
		{"ErrDispatcherUnavailable", usecase.ErrDispatcherUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.err).NotNil()
		})
	}
}

func TestErrors_ErrorsAreDistinct(t *testing.T) {
	gt.Bool(t, errors.Is(usecase.ErrTaskAlreadyStarted, usecase.ErrTaskAlreadyCompleted)).False()
	gt.Bool(t, errors.Is(usecase.ErrNoAction, usecase.ErrDispatchFailed)).False()
	gt.Bool(t, errors.Is(usecase.ErrTranslatorUnavailable, usecase.ErrDispatcherUnavailable)).False()
}

func TestErrors_ValidationErrorsShareModelSentinels(t *testing.T) {
	gt.Bool(t, errors.Is(usecase.ErrInvalidProgress, model.ErrInvalidProgress)).True()
	gt.Bool(t, errors.Is(usecase.ErrInvalidStatus, model.ErrInvalidStatus)).True()
}
