package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guildest/guildest/internal/taskqueue"
)

// dispatchLoop is the main processing loop for each worker goroutine
func (w *Worker) dispatchLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	logger := w.logger.With(slog.Int("worker_num", workerNum))
	logger.Info("Worker goroutine started")

	for {
		select {
		case <-w.stopChan:
			logger.Info("Worker goroutine stopping - stop requested")
			return
		case <-ctx.Done():
			logger.Info("Worker goroutine stopping - context canceled")
			return
		default:
		}

		task, err := w.queue.Pop(ctx, w.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Failed to pop task",
				slog.Any("error", err),
			)
			w.sleep(ctx, w.idleSleep)
			continue
		}

		if task == nil {
			// queue idle, brief pause before the next blocking pop
			w.sleep(ctx, w.idleSleep)
			continue
		}

		w.processTask(ctx, logger, task)
	}
}

// processTask runs the handler for one task and publishes its result.
// The result TTL comes from the task itself, so the producer controls how
// long its answer stays claimable.
func (w *Worker) processTask(ctx context.Context, logger *slog.Logger, task *taskqueue.Task) {
	logger.Info("Processing task",
		slog.String("job_id", task.JobID),
		slog.String("job_type", task.JobType),
	)

	handler, ok := w.handlers[task.JobType]
	if !ok {
		logger.Warn("No handler registered for job type",
			slog.String("job_id", task.JobID),
			slog.String("job_type", task.JobType),
		)
		w.metrics.CountJob(ctx, task.JobType, taskqueue.StatusError)
		w.publish(ctx, logger, task, taskqueue.Errorf("unknown job_type '%s'", task.JobType))
		return
	}

	start := time.Now()
	fields, err := w.runHandler(ctx, handler, task)
	elapsed := time.Since(start)
	w.metrics.ObserveJobDuration(ctx, task.JobType, elapsed)

	if err != nil {
		logger.Error("Task failed",
			slog.String("job_id", task.JobID),
			slog.String("job_type", task.JobType),
			slog.Duration("elapsed", elapsed),
			slog.Any("error", err),
		)
		w.metrics.CountJob(ctx, task.JobType, taskqueue.StatusError)
		w.publish(ctx, logger, task, taskqueue.Errorf("%s", err.Error()))
		return
	}

	logger.Info("Task completed",
		slog.String("job_id", task.JobID),
		slog.String("job_type", task.JobType),
		slog.Duration("elapsed", elapsed),
	)
	w.metrics.CountJob(ctx, task.JobType, taskqueue.StatusOK)
	w.publish(ctx, logger, task, taskqueue.OK(fields))
}

// runHandler invokes the handler, converting panics into errors so a bad
// handler can't take down the dispatch loop.
func (w *Worker) runHandler(ctx context.Context, handler Handler, task *taskqueue.Task) (fields map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler(ctx, task)
}

func (w *Worker) publish(ctx context.Context, logger *slog.Logger, task *taskqueue.Task, result taskqueue.Result) {
	ttl := time.Duration(task.ResultTTL) * time.Second

	if err := w.queue.PublishResult(ctx, task.JobID, result, ttl); err != nil {
		logger.Error("Failed to publish result",
			slog.String("job_id", task.JobID),
			slog.Any("error", err),
		)
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-w.stopChan:
	}
}
