package contribution

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const metricNamespace = "finitefield.org/gift-registry/contribution"

// Metrics records flow events. A nil *Metrics records nothing.
type Metrics struct {
	events      metric.Int64Counter
	submissions metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewMetrics registers instruments on meter, or on the global provider when meter is nil.
// Instruments that fail to register are skipped with a warning.
func NewMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(metricNamespace)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Metrics{}
	var err error
	if m.events, err = meter.Int64Counter(
		"registry.contribution.events",
		metric.WithDescription("Flow events by name and outcome"),
	); err != nil {
		logger.Warn("contribution: unable to register event metric", zap.Error(err))
		m.events = nil
	}
	if m.submissions, err = meter.Int64Counter(
		"registry.contribution.submissions",
		metric.WithDescription("Draft hand-offs by outcome"),
	); err != nil {
		logger.Warn("contribution: unable to register submission metric", zap.Error(err))
		m.submissions = nil
	}
	if m.latency, err = meter.Float64Histogram(
		"registry.contribution.submit.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds of draft hand-offs"),
	); err != nil {
		logger.Warn("contribution: unable to register latency metric", zap.Error(err))
		m.latency = nil
	}
	return m
}

func (m *Metrics) event(ctx context.Context, name string, err error) {
	if m == nil || m.events == nil {
		return
	}
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", name),
		attribute.String("outcome", outcome(err)),
	))
}

func (m *Metrics) submission(ctx context.Context, result string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", result))
	if m.submissions != nil {
		m.submissions.Add(ctx, 1, attrs)
	}
	if m.latency != nil && d > 0 {
		m.latency.Record(ctx, float64(d)/float64(time.Millisecond), attrs)
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch err.(type) {
	case *ValidationError:
		return "invalid"
	case *TransitionError:
		return "rejected"
	default:
		return "error"
	}
}
