package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/menti-activa/backend/internal/config"
)

type fakeSource struct {
	totals map[int64]int64
	err    error
}

func (s *fakeSource) GetAllTotals(ctx context.Context) (map[int64]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.totals, nil
}

type fakeSink struct {
	mu     sync.Mutex
	totals map[int64]int64
	resets int
}

func newFakeSink() *fakeSink {
	return &fakeSink{totals: make(map[int64]int64)}
}

func (s *fakeSink) BatchSetTotals(ctx context.Context, totals map[int64]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, total := range totals {
		s.totals[id] = total
	}
	return nil
}

func (s *fakeSink) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals = make(map[int64]int64)
	s.resets++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRebuild(t *testing.T) {
	source := &fakeSource{totals: map[int64]int64{1: 100, 2: 250}}
	sink := newFakeSink()
	// Stale entry that no longer exists in the source
	sink.totals[9] = 999

	w := NewSyncWorker(source, sink, &config.SyncConfig{Interval: time.Hour}, discardLogger())

	if err := w.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.resets != 1 {
		t.Errorf("resets = %d, want 1", sink.resets)
	}
	if len(sink.totals) != 2 {
		t.Errorf("sink holds %d totals, want 2 (stale entry removed)", len(sink.totals))
	}
	if sink.totals[1] != 100 || sink.totals[2] != 250 {
		t.Errorf("sink totals = %v", sink.totals)
	}
}

func TestRebuildSourceError(t *testing.T) {
	boom := errors.New("db down")
	source := &fakeSource{err: boom}
	sink := newFakeSink()

	w := NewSyncWorker(source, sink, &config.SyncConfig{Interval: time.Hour}, discardLogger())

	if err := w.Rebuild(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Rebuild() = %v, want source error", err)
	}
	if sink.resets != 0 {
		t.Error("a failed source read must not clear the mirror")
	}
}

func TestStartStop(t *testing.T) {
	source := &fakeSource{totals: map[int64]int64{1: 10}}
	sink := newFakeSink()

	w := NewSyncWorker(source, sink, &config.SyncConfig{Interval: 10 * time.Millisecond}, discardLogger())

	if w.IsRunning() {
		t.Fatal("worker should not be running before Start")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !w.IsRunning() {
		t.Fatal("worker should report running after Start")
	}

	// Let a few ticks happen
	time.Sleep(50 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if w.IsRunning() {
		t.Fatal("worker should not report running after Stop")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.resets == 0 {
		t.Error("ticker should have triggered at least one rebuild")
	}
	if sink.totals[1] != 10 {
		t.Errorf("sink totals = %v, want user 1 at 10", sink.totals)
	}
}
