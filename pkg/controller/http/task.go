package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
	"github.com/secmon-lab/taskrelay/pkg/usecase"
	"github.com/secmon-lab/taskrelay/pkg/utils/errutil"
)

const maxBodySize = 1 << 20

type createTaskRequest struct {
	Description string          `json:"description"`
	Action      json.RawMessage `json:"action"`
	Status      string          `json:"status"`
	Progress    float64         `json:"progress"`
	Translate   *bool           `json:"translate"`
}

type startTaskResponse struct {
	Task     *taskResponse     `json:"task"`
	Dispatch *dispatchResponse `json:"dispatch,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodySize))
	if err != nil {
		return nil, goerr.Wrap(errBadRequest, "failed to read request body", goerr.V("error", err.Error()))
	}
	return data, nil
}

func decodeBody(r *http.Request, v any) error {
	data, err := readBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return goerr.Wrap(errBadRequest, "invalid JSON body", goerr.V("error", err.Error()))
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func taskIDParam(r *http.Request) (model.TaskID, error) {
	return model.ParseTaskID(chi.URLParam(r, "id"))
}

// parseTaskUpdate reads a partial update. Absent keys are left unchanged and
// "action": null clears the action. Unknown keys are ignored.
func parseTaskUpdate(data []byte) (*model.TaskUpdate, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, goerr.Wrap(errBadRequest, "update body must be a JSON object")
	}

	update := &model.TaskUpdate{}
	if v, ok := raw["description"]; ok && !isNull(v) {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, goerr.Wrap(errBadRequest, "description must be a string")
		}
		update.Description = &s
	}
	if v, ok := raw["status"]; ok && !isNull(v) {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, goerr.Wrap(errBadRequest, "status must be a string")
		}
		status := types.TaskStatus(s)
		update.Status = &status
	}
	if v, ok := raw["progress"]; ok && !isNull(v) {
		var p float64
		if err := json.Unmarshal(v, &p); err != nil {
			return nil, goerr.Wrap(errBadRequest, "progress must be a number")
		}
		update.Progress = &p
	}
	if v, ok := raw["action"]; ok {
		if isNull(v) {
			update.ClearAction = true
		} else {
			action, err := model.ParseAction(v)
			if err != nil {
				return nil, err
			}
			update.Action = action
		}
	}

	return update, nil
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	var (
		task *model.Task
		err  error
	)
	status := types.TaskStatus(req.Status)
	translate := s.uc.HasTranslator()
	if req.Translate != nil {
		translate = *req.Translate
	}

	switch {
	case !isNull(req.Action):
		action, perr := model.ParseAction(req.Action)
		if perr != nil {
			writeError(ctx, w, perr)
			return
		}
		task, err = s.uc.Task.CreateTask(ctx, req.Description, action, status, req.Progress)
	case translate:
		task, err = s.uc.Task.CreateTaskFromText(ctx, req.Description, status, req.Progress)
	default:
		task, err = s.uc.Task.CreateTask(ctx, req.Description, nil, status, req.Progress)
	}
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusCreated, toTaskResponse(task))
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		tasks []*model.Task
		err   error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		tasks, err = s.uc.Task.ListTasksByStatus(ctx, types.TaskStatus(status))
	} else {
		tasks, err = s.uc.Task.ListTasks(ctx)
	}
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, toTaskResponses(tasks))
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := taskIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	task, err := s.uc.Task.GetTask(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if task == nil {
		writeError(ctx, w, goerr.Wrap(usecase.ErrTaskNotFound, "no such task", goerr.V(usecase.TaskIDKey, id)))
		return
	}

	writeJSON(ctx, w, http.StatusOK, toTaskResponse(task))
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := taskIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	data, err := readBody(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	update, err := parseTaskUpdate(data)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	task, err := s.uc.Task.UpdateTask(ctx, id, update)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, toTaskResponse(task))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := taskIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	deleted, err := s.uc.Task.DeleteTask(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if !deleted {
		writeError(ctx, w, goerr.Wrap(usecase.ErrTaskNotFound, "no such task", goerr.V(usecase.TaskIDKey, id)))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) startTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := taskIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		task, err := s.uc.Task.StartTaskAsync(ctx, id)
		if err != nil {
			s.writeStartError(w, r, &usecase.StartResult{Task: task}, err)
			return
		}
		writeJSON(ctx, w, http.StatusAccepted, startTaskResponse{Task: toTaskResponse(task)})
		return
	}

	result, err := s.uc.Task.StartTask(ctx, id)
	if err != nil {
		s.writeStartError(w, r, result, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, startTaskResponse{
		Task:     toTaskResponse(result.Task),
		Dispatch: toDispatchResponse(result.Dispatch),
	})
}

// writeStartError reports a failed start. When the task did move to STARTED
// the response still carries it so the caller sees the recorded state.
func (s *Server) writeStartError(w http.ResponseWriter, r *http.Request, result *usecase.StartResult, err error) {
	ctx := r.Context()
	if result == nil || result.Task == nil {
		writeError(ctx, w, err)
		return
	}

	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		_ = errutil.Handle(ctx, err, "failed to start task")
	}
	writeJSON(ctx, w, status, startTaskResponse{
		Task:     toTaskResponse(result.Task),
		Dispatch: toDispatchResponse(result.Dispatch),
		Error:    err.Error(),
	})
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := taskIDParam(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	task, err := s.uc.Task.CompleteTask(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, toTaskResponse(task))
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := readBody(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	action, err := model.ParseAction(data)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := s.uc.Task.Dispatch(ctx, action)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, toDispatchResponse(result))
}
