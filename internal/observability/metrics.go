// Package observability exposes the service's metric instruments through
// the OpenTelemetry metric API. Instruments go through the global meter
// provider, so the choice of exporter stays with the binary.
package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments shared by the gateway and worker services
type Metrics struct {
	messages    metric.Int64Counter
	spamEvents  metric.Int64Counter
	jobs        metric.Int64Counter
	jobDuration metric.Float64Histogram
	llmRequests metric.Int64Counter
}

var (
	initOnce sync.Once
	shared   *Metrics
)

// Get returns the process-wide metrics, creating the instruments on first
// use. Instrument creation errors are routed to the otel error handler,
// leaving the counter nil-safe via the no-op fallback.
func Get() *Metrics {
	initOnce.Do(func() {
		meter := otel.Meter("github.com/guildest/guildest")
		m := &Metrics{}
		var err error

		m.messages, err = meter.Int64Counter("guildest.messages",
			metric.WithDescription("Messages seen by the gateway"))
		if err != nil {
			otel.Handle(err)
		}

		m.spamEvents, err = meter.Int64Counter("guildest.spam_events",
			metric.WithDescription("Spam detections"))
		if err != nil {
			otel.Handle(err)
		}

		m.jobs, err = meter.Int64Counter("guildest.jobs_processed",
			metric.WithDescription("Jobs processed by the worker"))
		if err != nil {
			otel.Handle(err)
		}

		m.jobDuration, err = meter.Float64Histogram("guildest.job_duration",
			metric.WithDescription("Job handler duration"),
			metric.WithUnit("s"))
		if err != nil {
			otel.Handle(err)
		}

		m.llmRequests, err = meter.Int64Counter("guildest.llm_requests",
			metric.WithDescription("LLM requests"))
		if err != nil {
			otel.Handle(err)
		}

		shared = m
	})

	return shared
}

// CountMessage records one inbound message
func (m *Metrics) CountMessage(ctx context.Context, guildID string) {
	m.messages.Add(ctx, 1, metric.WithAttributes(
		attribute.String("guild_id", orUnknown(guildID)),
	))
}

// CountSpam records one spam detection
func (m *Metrics) CountSpam(ctx context.Context, guildID string) {
	m.spamEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("guild_id", orUnknown(guildID)),
	))
}

// CountJob records one processed job with its outcome status
func (m *Metrics) CountJob(ctx context.Context, jobType, status string) {
	m.jobs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job_type", orUnknown(jobType)),
		attribute.String("status", orUnknown(status)),
	))
}

// ObserveJobDuration records how long a job handler ran
func (m *Metrics) ObserveJobDuration(ctx context.Context, jobType string, d time.Duration) {
	m.jobDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("job_type", orUnknown(jobType)),
	))
}

// CountLLMRequest records one upstream model call
func (m *Metrics) CountLLMRequest(ctx context.Context, model, status string) {
	m.llmRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", orUnknown(model)),
		attribute.String("status", orUnknown(status)),
	))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
