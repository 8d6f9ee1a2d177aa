// Package worker runs the background backend poll: a periodic health check
// plus a collection refresh, so the UI reflects backend state without user
// action.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/templar-app/templar/internal/backend"
)

// HealthClient is the slice of the backend client the worker needs.
type HealthClient interface {
	Health(ctx context.Context) (*backend.HealthStatus, error)
}

// Refresher re-fetches the template collection.
type Refresher interface {
	FetchAll(ctx context.Context) error
}

// Status is the last observed backend state.
type Status struct {
	Healthy   bool
	CheckedAt time.Time
	Err       string
}

// Worker polls the backend in the background
type Worker struct {
	client   HealthClient
	store    Refresher
	logger   *slog.Logger
	interval time.Duration

	mu     sync.RWMutex
	status Status

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new worker
func New(client HealthClient, store Refresher, logger *slog.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		client:   client,
		store:    store,
		logger:   logger.With("component", "worker"),
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the worker
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
	w.logger.Info("worker started", "poll_interval", w.interval)
}

// Stop stops the worker gracefully
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// Status returns the last observed backend state.
func (w *Worker) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

func (w *Worker) run() {
	defer w.wg.Done()

	// Poll immediately so the first page load has fresh state.
	w.poll()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Worker) poll() {
	ctx, cancel := context.WithTimeout(w.ctx, backend.DefaultTimeout)
	defer cancel()

	status := Status{CheckedAt: time.Now()}
	health, err := w.client.Health(ctx)
	if err != nil {
		status.Err = backend.UserMessage(err)
	} else {
		status.Healthy = health.Status == "ok" || health.Status == "healthy"
	}

	w.mu.Lock()
	transitioned := w.status.Healthy != status.Healthy || w.status.CheckedAt.IsZero()
	w.status = status
	w.mu.Unlock()

	if transitioned {
		if status.Healthy {
			w.logger.Info("backend reachable")
		} else {
			w.logger.Warn("backend unreachable", "error", status.Err)
		}
	}

	// Keep the collection warm while the backend is up.
	if status.Healthy && w.store != nil {
		if err := w.store.FetchAll(ctx); err != nil {
			w.logger.Warn("background refresh failed", "error", err)
		}
	}
}
