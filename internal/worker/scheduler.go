package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/qonto-ledger-sync/internal/syncer"
)

// Scheduler starts a full sync run at a fixed interval. Overlap protection
// comes from the engine's global lock, so a slow run simply makes the next
// tick a no-op.
type Scheduler struct {
	logger   *slog.Logger
	runner   SyncRunner
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler creates a scheduler running a full sync every interval
func NewScheduler(logger *slog.Logger, runner SyncRunner, interval time.Duration) *Scheduler {
	return &Scheduler{
		logger:   logger,
		runner:   runner,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the scheduling loop in the background
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting sync scheduler", "interval", s.interval.String())

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	result, err := s.runner.RunAll(ctx)
	switch {
	case errors.Is(err, syncer.ErrSyncAlreadyRunning):
		s.logger.Info("Scheduled sync skipped, previous run still in progress")
	case errors.Is(err, syncer.ErrNotConnected):
		s.logger.Warn("Scheduled sync skipped, connection not established")
	case err != nil:
		s.logger.Error("Scheduled sync failed", "error", err)
	default:
		s.logger.Info("Scheduled sync completed",
			"synced", result.Synced,
			"failed", result.Failed,
			"duration", result.Duration.String())
	}
}

// Stop halts the loop and waits for it to exit
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
	s.logger.Info("Sync scheduler stopped")
}
