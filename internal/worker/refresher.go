package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RefresherConfig holds configuration for the periodic export.
type RefresherConfig struct {
	// Interval is how often recent months are re-exported (default: 1h)
	Interval time.Duration

	// Months is how many months back to refresh, current month included (default: 2)
	Months int
}

// DefaultRefresherConfig returns sensible defaults
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Interval: time.Hour,
		Months:   2,
	}
}

// Refresher re-exports recent months on a timer.
type Refresher struct {
	worker *ExportWorker
	config RefresherConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRefresher(worker *ExportWorker, config RefresherConfig) *Refresher {
	if config.Interval <= 0 {
		config.Interval = DefaultRefresherConfig().Interval
	}
	if config.Months <= 0 {
		config.Months = DefaultRefresherConfig().Months
	}
	return &Refresher{worker: worker, config: config}
}

// Start begins the refresh loop. Returns an error if already running.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("refresher is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	slog.InfoContext(ctx, "Export refresher started",
		"interval", r.config.Interval,
		"months", r.config.Months)
	return nil
}

// Stop signals the loop and waits for it to finish.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Export refresher stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export refresher stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

func (r *Refresher) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Refresher) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.refresh(ctx)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	if err := r.worker.ExportRecent(ctx, r.config.Months); err != nil {
		slog.WarnContext(ctx, "Periodic export incomplete", "error", err)
	}
}
