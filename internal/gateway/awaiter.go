// Package gateway implements the HTTP entry point: it records inbound
// messages, enqueues background jobs, and collects their results without
// blocking the request path.
package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Awaiter runs fire-and-forget result waits. Each job handed to Go gets
// its outcome logged exactly once; failures never propagate to the
// request path that spawned them. Shutdown bounds how long in-flight
// waits can delay process exit.
type Awaiter struct {
	logger *slog.Logger
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewAwaiter creates an awaiter whose waits stop when Shutdown is called
func NewAwaiter(logger *slog.Logger) *Awaiter {
	ctx, cancel := context.WithCancel(context.Background())
	return &Awaiter{
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go runs fn in the background. fn receives the awaiter's lifecycle
// context so shutdown interrupts a blocked wait. Errors and panics are
// logged and swallowed.
func (a *Awaiter) Go(jobName, jobID string, fn func(ctx context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("Background job wait panicked",
					slog.String("job", jobName),
					slog.String("job_id", jobID),
					slog.Any("panic", r),
				)
			}
		}()

		if err := fn(a.ctx); err != nil {
			a.logger.Warn("Background job wait failed",
				slog.String("job", jobName),
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
			return
		}

		a.logger.Info("Background job wait finished",
			slog.String("job", jobName),
			slog.String("job_id", jobID),
		)
	}()
}

// Shutdown cancels outstanding waits and blocks until they drain or the
// timeout passes.
func (a *Awaiter) Shutdown(timeout time.Duration) bool {
	a.cancel()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		a.logger.Warn("Awaiter shutdown timed out with waits still in flight")
		return false
	}
}
