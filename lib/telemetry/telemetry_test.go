package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	tel, err := Setup(context.Background(), Service{Name: "test"}, Config{ProcessStats: true})
	require.NoError(t, err)
	require.False(t, tel.Enabled())
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetupUnknownProtocol(t *testing.T) {
	_, err := Setup(context.Background(), Service{Name: "test"}, Config{
		Endpoint: "http://localhost:4318",
		Protocol: "zipkin",
	})
	require.ErrorContains(t, err, "unknown otlp protocol")
}

func TestConfig(t *testing.T) {
	require.False(t, Config{}.exports(SignalTraces))
	require.True(t, Config{Endpoint: "http://localhost:4318"}.exports(SignalTraces))
	onlyMetrics := Config{Endpoint: "http://localhost:4318", Signals: []string{SignalMetrics}}
	require.False(t, onlyMetrics.exports(SignalTraces))
	require.True(t, onlyMetrics.exports(SignalMetrics))

	require.Equal(t, "grpc", Config{Endpoint: "http://collector:4317"}.protocol())
	require.Equal(t, "http", Config{Endpoint: "http://collector:4318"}.protocol())
	require.Equal(t, "grpc", Config{Endpoint: "https://otlp.example.com", Protocol: "GRPC"}.protocol())

	require.Equal(t, defaultMetricInterval, Config{}.metricInterval())
	require.Equal(t, int64(10), int64(Config{MetricIntervalSeconds: 10}.metricInterval().Seconds()))
}

func TestResource(t *testing.T) {
	r, err := newResource(Service{Name: "mhrs-tracker", Version: "1.2.0"}, Config{Environment: "home"})
	require.NoError(t, err)

	attrs := r.Set()
	name, ok := attrs.Value(semconv.ServiceNameKey)
	require.True(t, ok)
	require.Equal(t, "mhrs-tracker", name.AsString())
	version, ok := attrs.Value(semconv.ServiceVersionKey)
	require.True(t, ok)
	require.Equal(t, "1.2.0", version.AsString())
	env, ok := attrs.Value(semconv.DeploymentEnvironmentKey)
	require.True(t, ok)
	require.Equal(t, "home", env.AsString())
	instance, ok := attrs.Value(semconv.ServiceInstanceIDKey)
	require.True(t, ok)
	require.NotEmpty(t, instance.AsString())
}

func TestObserveProcess(t *testing.T) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	stop, err := ObserveProcess(provider.Meter("test"))
	require.NoError(t, err)

	var collected metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &collected))
	names := map[string]bool{}
	for _, scope := range collected.ScopeMetrics {
		for _, m := range scope.Metrics {
			names[m.Name] = true
		}
	}
	require.True(t, names["process.heap.allocated"])
	require.True(t, names["process.goroutines"])

	require.NoError(t, stop())
	collected = metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(context.Background(), &collected))
	for _, scope := range collected.ScopeMetrics {
		require.Empty(t, scope.Metrics)
	}
}
