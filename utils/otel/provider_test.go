package otel

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"status-hub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

func TestConfigFromEnv(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		t.Setenv("OTEL_SERVICE_NAME", "")
		t.Setenv("OTEL_ENABLED", "")
		t.Setenv("OTEL_TRACE_SAMPLE_RATIO", "")

		cfg := ConfigFromEnv()

		assert.Equal(t, "status-hub", cfg.ServiceName)
		assert.True(t, cfg.Enabled)
		assert.Equal(t, 1.0, cfg.SampleRatio)
	})

	t.Run("disabled with custom ratio", func(t *testing.T) {
		t.Setenv("OTEL_ENABLED", "false")
		t.Setenv("OTEL_TRACE_SAMPLE_RATIO", "0.25")

		cfg := ConfigFromEnv()

		assert.False(t, cfg.Enabled)
		assert.Equal(t, 0.25, cfg.SampleRatio)
	})

	t.Run("out of range ratio is ignored", func(t *testing.T) {
		t.Setenv("OTEL_TRACE_SAMPLE_RATIO", "3")

		assert.Equal(t, 1.0, ConfigFromEnv().SampleRatio)
	})
}

func TestConfigFromEnv_TerminalID(t *testing.T) {
	t.Setenv("STATUS_HUB_TERMINAL_ID", "front-desk-2")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318/")

	cfg := ConfigFromEnv()

	assert.Equal(t, "front-desk-2", cfg.TerminalID)
	assert.Equal(t, "http://collector:4318", cfg.OTLPEndpoint)
}

func TestNewResource_CarriesTerminal(t *testing.T) {
	res, err := newResource(context.Background(), Config{
		ServiceName:    "status-hub",
		ServiceVersion: "1.2.3",
		Environment:    "test",
		TerminalID:     "front-desk-2",
	})
	require.NoError(t, err)

	got, ok := res.Set().Value(TerminalIDKey)
	require.True(t, ok)
	assert.Equal(t, "front-desk-2", got.AsString())
	instance, ok := res.Set().Value(attribute.Key("service.instance.id"))
	require.True(t, ok)
	assert.Equal(t, "front-desk-2", instance.AsString())
}

func TestProviderSet_ShutdownInReverseOrder(t *testing.T) {
	var order []string
	var set providerSet
	set.add(func(context.Context) error { order = append(order, "traces"); return nil })
	set.add(func(context.Context) error { order = append(order, "logs"); return errors.New("flush failed") })

	err := set.abort(context.Background(), errors.New("metrics exporter"))

	assert.Equal(t, []string{"logs", "traces"}, order)
	assert.ErrorContains(t, err, "metrics exporter")
	assert.ErrorContains(t, err, "flush failed")
}

func TestInitProvider_Disabled(t *testing.T) {
	cfg := Config{
		ServiceName:  "test",
		Enabled:      false,
		OTLPEndpoint: "http://localhost:4318",
	}

	shutdown, err := InitProvider(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestStatusMetrics_RecordsResolutionOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := NewMeterProvider(resource.Empty(), reader)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := NewStatusMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.CacheHit(ctx)
	m.CacheHit(ctx)
	m.ClassifierCall(ctx, 20*time.Millisecond, nil)
	m.ClassifierCall(ctx, 10*time.Second, fmt.Errorf("%w after 10s", domain.ErrClassificationTimeout))
	m.Fallback(ctx, "timeout")

	data := collect(t, reader)

	hits, ok := data[cacheHitsName].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, hits.DataPoints, 1)
	assert.Equal(t, int64(2), hits.DataPoints[0].Value)

	calls, ok := data[classifierCallsName].(metricdata.Sum[int64])
	require.True(t, ok)
	byOutcome := map[string]int64{}
	for _, dp := range calls.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("outcome"))
		byOutcome[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"ok": 1, "timeout": 1}, byOutcome)

	durations, ok := data[classifyDurationName].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range durations.DataPoints {
		count += dp.Count
		assert.Equal(t, classifyBuckets, dp.Bounds)
	}
	assert.Equal(t, uint64(2), count)

	fallbacks, ok := data[fallbacksName].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, fallbacks.DataPoints, 1)
	assert.Equal(t, int64(1), fallbacks.DataPoints[0].Value)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "timeout", outcome(domain.ErrClassificationTimeout))
	assert.Equal(t, "session_expired", outcome(domain.ErrSessionExpired))
	assert.Equal(t, "error", outcome(errors.New("boom")))
}
