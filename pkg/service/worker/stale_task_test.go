package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
	"github.com/secmon-lab/taskrelay/pkg/repository/memory"
	"github.com/secmon-lab/taskrelay/pkg/service/worker"
)

func TestStaleTaskMonitor_Check(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	started, err := repo.Task().Create(ctx, &model.Task{Description: "stuck", Status: types.TaskStatusStarted})
	gt.NoError(t, err).Required()
	_, err = repo.Task().Create(ctx, &model.Task{Description: "waiting", Status: types.TaskStatusNew})
	gt.NoError(t, err).Required()
	_, err = repo.Task().Create(ctx, &model.Task{Description: "done", Status: types.TaskStatusCompleted})
	gt.NoError(t, err).Required()

	t.Run("reports STARTED tasks past the threshold", func(t *testing.T) {
		later := func() time.Time { return time.Now().Add(2 * time.Hour) }
		m := worker.NewStaleTaskMonitor(repo, time.Minute, time.Hour, worker.WithClock(later))

		stale, err := m.Check(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, stale).Length(1).Required()
		gt.Value(t, stale[0].ID).Equal(started.ID)
	})

	t.Run("ignores recent tasks", func(t *testing.T) {
		m := worker.NewStaleTaskMonitor(repo, time.Minute, time.Hour)

		stale, err := m.Check(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, stale).Length(0)
	})
}

func TestStaleTaskMonitor_Lifecycle(t *testing.T) {
	t.Run("start and stop", func(t *testing.T) {
		m := worker.NewStaleTaskMonitor(memory.New(), 10*time.Millisecond, time.Hour)
		gt.NoError(t, m.Start(context.Background())).Required()
		time.Sleep(30 * time.Millisecond)
		m.Stop()
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		m := worker.NewStaleTaskMonitor(memory.New(), 0, time.Hour)
		gt.Value(t, m.Start(context.Background())).NotNil()
	})
}
