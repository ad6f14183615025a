package production

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type pipelineMetrics struct {
	started   metric.Int64Counter
	completed metric.Int64Counter
	failed    metric.Int64Counter
	duration  metric.Float64Histogram
}

func newPipelineMetrics(log *slog.Logger) *pipelineMetrics {
	meter := otel.Meter("github.com/castforge-labs/castforge-core/production")
	m := &pipelineMetrics{}

	var err error
	if m.started, err = meter.Int64Counter("castforge.jobs.started",
		metric.WithDescription("Production jobs admitted")); err != nil {
		log.Warn("metric registration failed", slog.String("error", err.Error()))
		return nil
	}
	if m.completed, err = meter.Int64Counter("castforge.jobs.completed",
		metric.WithDescription("Production jobs finished successfully")); err != nil {
		log.Warn("metric registration failed", slog.String("error", err.Error()))
		return nil
	}
	if m.failed, err = meter.Int64Counter("castforge.jobs.failed",
		metric.WithDescription("Production jobs that ended in failure")); err != nil {
		log.Warn("metric registration failed", slog.String("error", err.Error()))
		return nil
	}
	if m.duration, err = meter.Float64Histogram("castforge.jobs.duration_seconds",
		metric.WithDescription("Wall-clock duration of finished jobs")); err != nil {
		log.Warn("metric registration failed", slog.String("error", err.Error()))
		return nil
	}
	return m
}

func (m *pipelineMetrics) jobStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.started.Add(ctx, 1)
}

func (m *pipelineMetrics) jobCompleted(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.completed.Add(ctx, 1)
	m.duration.Record(ctx, seconds)
}

func (m *pipelineMetrics) jobFailed(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.failed.Add(ctx, 1)
	m.duration.Record(ctx, seconds)
}
