package http

import (
	"fmt"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
	"github.com/secmon-lab/taskrelay/pkg/usecase"
	"github.com/secmon-lab/taskrelay/pkg/utils/errutil"
)

// Legacy endpoints keep the query-string API and the response envelopes of
// the first web front end.

type legacyTaskRequest struct {
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Progress    float64 `json:"progress"`
}

type legacyEnvelope struct {
	StatusCode int `json:"status_code"`
	Content    any `json:"content"`
}

type legacyMessage struct {
	Message string `json:"message"`
	TaskID  int64  `json:"task_id,omitempty"`
}

func writeLegacyError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		_ = errutil.Handle(ctx, err, "legacy request failed")
	}
	writeJSON(ctx, w, status, map[string]string{"detail": err.Error()})
}

func legacyTaskID(r *http.Request) (model.TaskID, error) {
	return model.ParseTaskID(r.URL.Query().Get("task_id"))
}

func (s *Server) legacyNew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req legacyTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeLegacyError(w, r, err)
		return
	}

	task, err := s.uc.Task.CreateTaskFromText(ctx, req.Description, types.TaskStatus(req.Status), req.Progress)
	if err != nil {
		writeLegacyError(w, r, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, legacyEnvelope{StatusCode: http.StatusOK, Content: int64(task.ID)})
}

func (s *Server) legacyStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := legacyTaskID(r)
	if err != nil {
		writeLegacyError(w, r, err)
		return
	}

	if _, err := s.uc.Task.StartTask(ctx, id); err != nil {
		writeLegacyError(w, r, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, legacyMessage{
		Message: fmt.Sprintf("Task %d started", id),
		TaskID:  int64(id),
	})
}

func (s *Server) legacyUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := legacyTaskID(r)
	if err != nil {
		writeLegacyError(w, r, err)
		return
	}

	data, err := readBody(r)
	if err != nil {
		writeLegacyError(w, r, err)
		return
	}
	update, err := parseTaskUpdate(data)
	if err != nil {
		writeLegacyError(w, r, err)
		return
	}

	if _, err := s.uc.Task.UpdateTask(ctx, id, update); err != nil {
		writeLegacyError(w, r, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, legacyMessage{
		Message: fmt.Sprintf("Task %d updated", id),
		TaskID:  int64(id),
	})
}

func (s *Server) legacyDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := legacyTaskID(r)
	if err != nil {
		writeLegacyError(w, r, err)
		return
	}

	deleted, err := s.uc.Task.DeleteTask(ctx, id)
	if err != nil {
		writeLegacyError(w, r, err)
		return
	}
	if !deleted {
		writeLegacyError(w, r, goerr.Wrap(usecase.ErrTaskNotFound, fmt.Sprintf("Task %d not found", id)))
		return
	}

	writeJSON(ctx, w, http.StatusOK, legacyMessage{Message: fmt.Sprintf("Task %d deleted", id)})
}

func (s *Server) legacyAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tasks, err := s.uc.Task.ListTasks(ctx)
	if err != nil {
		writeLegacyError(w, r, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, legacyEnvelope{StatusCode: http.StatusOK, Content: toTaskResponses(tasks)})
}
