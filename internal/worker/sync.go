package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/menti-activa/backend/internal/config"
)

// TotalSource provides accumulated totals from authoritative storage
type TotalSource interface {
	GetAllTotals(ctx context.Context) (map[int64]int64, error)
}

// RankingSink receives rebuilt totals
type RankingSink interface {
	BatchSetTotals(ctx context.Context, totals map[int64]int64) error
	Reset(ctx context.Context) error
}

// SyncWorker periodically rebuilds the Redis ranking mirror from
// PostgreSQL. Writes mirror into Redis synchronously, so the worker
// only repairs drift (missed increments, Redis restarts).
type SyncWorker struct {
	source  TotalSource
	sink    RankingSink
	config  *config.SyncConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(source TotalSource, sink RankingSink, cfg *config.SyncConfig, logger *slog.Logger) *SyncWorker {
	return &SyncWorker{
		source: source,
		sink:   sink,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background sync process
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("sync worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background sync process
func (w *SyncWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("sync worker stopped")
	return nil
}

// run is the main worker loop
func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.Rebuild(ctx); err != nil {
				w.logger.Error("sync cycle failed", "error", err)
			}
		}
	}
}

// Rebuild reloads every user's total from PostgreSQL into the ranking
// mirror. Also used once at startup to warm an empty mirror.
func (w *SyncWorker) Rebuild(ctx context.Context) error {
	startTime := time.Now()

	totals, err := w.source.GetAllTotals(ctx)
	if err != nil {
		return err
	}

	if err := w.sink.Reset(ctx); err != nil {
		return err
	}

	if err := w.sink.BatchSetTotals(ctx, totals); err != nil {
		return err
	}

	w.logger.Info("ranking mirror rebuilt",
		"users", len(totals),
		"duration", time.Since(startTime),
	)
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
