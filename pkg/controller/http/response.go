package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/service/dispatch"
	"github.com/secmon-lab/taskrelay/pkg/service/translator"
	"github.com/secmon-lab/taskrelay/pkg/usecase"
	"github.com/secmon-lab/taskrelay/pkg/utils/errutil"
	"github.com/secmon-lab/taskrelay/pkg/utils/safe"
)

// errBadRequest marks request decoding failures
var errBadRequest = goerr.New("bad request")

type taskResponse struct {
	ID          int64         `json:"id"`
	Description string        `json:"description"`
	Action      *model.Action `json:"action"`
	Status      string        `json:"status"`
	Progress    float64       `json:"progress"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func toTaskResponse(t *model.Task) *taskResponse {
	if t == nil {
		return nil
	}
	return &taskResponse{
		ID:          int64(t.ID),
		Description: t.Description,
		Action:      t.Action,
		Status:      t.Status.String(),
		Progress:    t.Progress,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTaskResponses(tasks []*model.Task) []*taskResponse {
	resp := make([]*taskResponse, len(tasks))
	for i, t := range tasks {
		resp[i] = toTaskResponse(t)
	}
	return resp
}

type dispatchResponse struct {
	*model.DispatchResult
	Kind string `json:"kind"`
}

func toDispatchResponse(r *model.DispatchResult) *dispatchResponse {
	if r == nil {
		return nil
	}
	return &dispatchResponse{DispatchResult: r, Kind: r.KindName()}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(ctx, w, data)
}

// statusOf maps domain errors onto HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, model.ErrInvalidTaskID),
		errors.Is(err, model.ErrMalformedPayload),
		errors.Is(err, model.ErrMissingField),
		errors.Is(err, usecase.ErrInvalidProgress),
		errors.Is(err, usecase.ErrInvalidStatus),
		errors.Is(err, usecase.ErrNoFieldsProvided),
		errors.Is(err, usecase.ErrEmptyDescription),
		errors.Is(err, translator.ErrEmptyRequest):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrTaskAlreadyStarted),
		errors.Is(err, usecase.ErrTaskAlreadyCompleted),
		errors.Is(err, usecase.ErrNoAction):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrDispatchFailed),
		errors.Is(err, dispatch.ErrUnresolvedChannel),
		errors.Is(err, dispatch.ErrRemoteDispatchFailed):
		return http.StatusInternalServerError
	case errors.Is(err, usecase.ErrTranslatorUnavailable),
		errors.Is(err, usecase.ErrDispatcherUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	errutil.HandleHTTP(ctx, w, err, statusOf(err))
}
