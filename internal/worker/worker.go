// Package worker pulls tasks off the queue and dispatches them to
// registered job handlers. Every pop produces exactly one published
// result: handlers that fail, panic, or name an unknown job type all end
// in an error result so waiting producers are never left hanging.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guildest/guildest/internal/observability"
	"github.com/guildest/guildest/internal/taskqueue"
)

// Handler processes one task and returns the payload fields of its
// result. A non-nil error becomes an error result for the producer.
type Handler func(ctx context.Context, task *taskqueue.Task) (map[string]any, error)

// Config holds worker configuration
type Config struct {
	Logger      *slog.Logger
	Queue       *taskqueue.Queue
	Concurrency int
	PopTimeout  time.Duration
	IdleSleep   time.Duration
}

// Worker represents the background task worker
type Worker struct {
	logger      *slog.Logger
	queue       *taskqueue.Queue
	handlers    map[string]Handler
	metrics     *observability.Metrics
	concurrency int
	popTimeout  time.Duration
	idleSleep   time.Duration
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	popTimeout := cfg.PopTimeout
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	idleSleep := cfg.IdleSleep
	if idleSleep <= 0 {
		idleSleep = 100 * time.Millisecond
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Worker{
		logger:      cfg.Logger,
		queue:       cfg.Queue,
		handlers:    make(map[string]Handler),
		metrics:     observability.Get(),
		concurrency: concurrency,
		popTimeout:  popTimeout,
		idleSleep:   idleSleep,
		stopChan:    make(chan struct{}),
	}
}

// Register adds a handler for a job type. Must be called before Start.
func (w *Worker) Register(jobType string, handler Handler) {
	w.handlers[jobType] = handler
}

// Start begins processing tasks and blocks until ctx is canceled
func (w *Worker) Start(ctx context.Context) error {
	if err := w.queue.Ping(ctx); err != nil {
		return fmt.Errorf("worker startup failed: %w", err)
	}

	w.logger.Info("Starting worker",
		slog.Int("concurrency", w.concurrency),
		slog.Duration("pop_timeout", w.popTimeout),
		slog.Int("registered_handlers", len(w.handlers)),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.dispatchLoop(ctx, i)
	}

	<-ctx.Done()
	w.logger.Info("Worker context canceled, stopping...")

	return nil
}

// Stop gracefully stops the worker, waiting for in-flight tasks
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
