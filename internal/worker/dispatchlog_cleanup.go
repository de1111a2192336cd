package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/pkg/logger"
)

// DispatchLogCleanupWorker prunes dispatch results older than the retention
// window. The dispatch log is append-only; this is the only writer that
// removes rows from it.
type DispatchLogCleanupWorker struct {
	repo            repository.DispatchLogRepository
	retentionDays   int
	cleanupInterval time.Duration
	logger          *logger.Logger
}

func NewDispatchLogCleanupWorker(repo repository.DispatchLogRepository, retentionDays int, cleanupInterval time.Duration, logger *logger.Logger) *DispatchLogCleanupWorker {
	return &DispatchLogCleanupWorker{
		repo:            repo,
		retentionDays:   retentionDays,
		cleanupInterval: cleanupInterval,
		logger:          logger,
	}
}

func (w *DispatchLogCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.cleanup(ctx); err != nil {
				w.logger.Error(err, "dispatch log cleanup failed")
			}
		}
	}
}

func (w *DispatchLogCleanupWorker) cleanup(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.repo.Cleanup(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup dispatch results: %w", err)
	}

	w.logger.Info("dispatch log cleanup complete", "removed", rows, "cutoff", cutoff.Format(time.DateOnly))
	return nil
}
