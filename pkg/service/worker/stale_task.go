package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskrelay/pkg/domain/interfaces"
	"github.com/secmon-lab/taskrelay/pkg/domain/model"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
	"github.com/secmon-lab/taskrelay/pkg/utils/logging"
)

// StaleTaskMonitor periodically reports tasks that have stayed STARTED longer
// than a threshold. A failed dispatch leaves its task STARTED and nothing
// retries it, so these tasks need an operator.
//
// Architecture assumptions:
// - Single server instance (every instance would report the same tasks)
type StaleTaskMonitor struct {
	repo      interfaces.Repository
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// MonitorOption configures a StaleTaskMonitor
type MonitorOption func(*StaleTaskMonitor)

// WithClock overrides the time source
func WithClock(now func() time.Time) MonitorOption {
	return func(m *StaleTaskMonitor) {
		m.now = now
	}
}

// NewStaleTaskMonitor creates a monitor checking every interval for tasks
// STARTED for longer than threshold
func NewStaleTaskMonitor(repo interfaces.Repository, interval, threshold time.Duration, opts ...MonitorOption) *StaleTaskMonitor {
	m := &StaleTaskMonitor{
		repo:      repo,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins the background loop. It does not block.
func (m *StaleTaskMonitor) Start(ctx context.Context) error {
	if m.interval <= 0 {
		return goerr.New("stale task monitor interval must be positive", goerr.V("interval", m.interval))
	}

	logging.From(ctx).Info("Stale task monitor starting",
		"interval", m.interval.String(),
		"threshold", m.threshold.String())

	go m.run(ctx)

	return nil
}

// Stop signals the monitor to stop and waits for completion
func (m *StaleTaskMonitor) Stop() {
	close(m.stopCh)
	<-m.doneCh
	logging.Default().Info("Stale task monitor stopped")
}

func (m *StaleTaskMonitor) run(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.Check(ctx); err != nil {
				logging.From(ctx).Error("Stale task check failed (will retry next interval)",
					"error", err.Error())
			}

		case <-m.stopCh:
			return

		case <-ctx.Done():
			logging.From(ctx).Info("Stale task monitor context cancelled")
			return
		}
	}
}

// Check runs one pass and returns the stale tasks it reported
func (m *StaleTaskMonitor) Check(ctx context.Context) ([]*model.Task, error) {
	tasks, err := m.repo.Task().ListByStatus(ctx, types.TaskStatusStarted)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list started tasks")
	}

	cutoff := m.now().Add(-m.threshold)
	var stale []*model.Task
	for _, t := range tasks {
		if t.UpdatedAt.After(cutoff) {
			continue
		}
		stale = append(stale, t)
		logging.From(ctx).Warn("Task has been STARTED without completion",
			"task_id", t.ID,
			"description", t.Description,
			"started_for", m.now().Sub(t.UpdatedAt).Round(time.Second).String())
	}

	return stale, nil
}
