package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/haulgate/internal/metrics"
)

// PurgeFunc deletes records that expired before cutoff and reports how many went
type PurgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// Task is one kind of record the cleanup manager purges
type Task struct {
	Name string
	// Retention is kept past expiry before a record is purged
	Retention time.Duration
	Purge     PurgeFunc
}

// CleanupManager periodically removes expired login challenges, device
// trusts and resend records
type CleanupManager struct {
	tasks    []Task
	logger   *slog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(tasks []Task, logger *slog.Logger, m *metrics.Metrics, interval time.Duration) *CleanupManager {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupManager{
		tasks:    tasks,
		logger:   logger,
		metrics:  m,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task and blocks until stopped
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce runs every task. A failing task does not stop the others.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := cm.now()
	for _, task := range cm.tasks {
		removed, err := task.Purge(cleanupCtx, now.Add(-task.Retention))
		if err != nil {
			cm.logger.Error("cleanup task failed", slog.String("task", task.Name), slog.Any("error", err))
			continue
		}
		cm.metrics.CleanupRemovedAdd(task.Name, removed)
		if removed > 0 {
			cm.logger.Info("cleanup task completed",
				slog.String("task", task.Name),
				slog.Int64("rows_deleted", removed))
		}
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
