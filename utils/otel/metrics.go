package otel

import (
	"context"
	"errors"
	"time"

	"status-hub/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument names.
const (
	cacheHitsName        = "status_hub_cache_hits_total"
	classifierCallsName  = "status_hub_classifier_calls_total"
	classifyDurationName = "status_hub_classify_duration_seconds"
	fallbacksName        = "status_hub_fallbacks_total"
)

// Metrics is set by InitMetrics.
var Metrics *StatusMetrics

// StatusMetrics holds the instruments describing status resolution.
// It satisfies the verifier's resolution recorder.
type StatusMetrics struct {
	CacheHits        metric.Int64Counter
	ClassifierCalls  metric.Int64Counter
	ClassifyDuration metric.Float64Histogram
	Fallbacks        metric.Int64Counter
}

// InitMetrics creates the instruments on the global meter provider.
func InitMetrics() error {
	m, err := NewStatusMetrics(otel.Meter("status-hub"))
	if err != nil {
		return err
	}
	Metrics = m
	return nil
}

// NewStatusMetrics creates the instruments on meter.
func NewStatusMetrics(meter metric.Meter) (*StatusMetrics, error) {
	cacheHits, err := meter.Int64Counter(cacheHitsName,
		metric.WithDescription("Resolutions served from the status cache"),
	)
	if err != nil {
		return nil, err
	}

	classifierCalls, err := meter.Int64Counter(classifierCallsName,
		metric.WithDescription("Status classifier invocations by outcome"),
	)
	if err != nil {
		return nil, err
	}

	classifyDuration, err := meter.Float64Histogram(classifyDurationName,
		metric.WithDescription("Status classification duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter(fallbacksName,
		metric.WithDescription("Resolutions that fell back to the unauthenticated status"),
	)
	if err != nil {
		return nil, err
	}

	return &StatusMetrics{
		CacheHits:        cacheHits,
		ClassifierCalls:  classifierCalls,
		ClassifyDuration: classifyDuration,
		Fallbacks:        fallbacks,
	}, nil
}

// CacheHit counts a resolution served from the status cache.
func (m *StatusMetrics) CacheHit(ctx context.Context) {
	m.CacheHits.Add(ctx, 1)
}

// ClassifierCall records one classifier invocation and how long it took,
// labelled with its outcome.
func (m *StatusMetrics) ClassifierCall(ctx context.Context, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome(err)))
	m.ClassifierCalls.Add(ctx, 1, attrs)
	m.ClassifyDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// Fallback counts a resolution that fell back to unauthenticated.
func (m *StatusMetrics) Fallback(ctx context.Context, reason string) {
	m.Fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrClassificationTimeout):
		return "timeout"
	case domain.IsSessionExpiry(err):
		return "session_expired"
	default:
		return "error"
	}
}
