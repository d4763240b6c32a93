package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"mhrs-tracker/lib/configutil"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	SignalTraces  = "traces"
	SignalMetrics = "metrics"

	defaultMetricInterval = 30 * time.Second
)

// Config is the "telemetry" section of the tracker config. Both signals
// go to one collector, an empty endpoint leaves the global no-op
// providers in place.
type Config struct {
	// for example http://localhost:4318 or http://localhost:4317
	Endpoint string `json:"endpoint"`
	// "grpc" or "http", port 4317 means grpc when empty
	Protocol string            `json:"protocol"`
	Headers  map[string]string `json:"headers"`
	// subset of "traces" and "metrics", empty means both
	Signals     []string `json:"signals"`
	Environment string   `json:"environment"`
	// seconds between metric exports
	MetricIntervalSeconds int `json:"metric_interval_seconds"`
	// report cpu, heap and goroutine gauges alongside the tracker metrics
	ProcessStats bool `json:"process_stats"`
}

func (c Config) exports(signal string) bool {
	return c.Endpoint != "" && (len(c.Signals) == 0 || slices.Contains(c.Signals, signal))
}

func (c Config) protocol() string {
	if c.Protocol != "" {
		return strings.ToLower(c.Protocol)
	}
	u, err := url.Parse(c.Endpoint)
	if err == nil && u.Port() == "4317" {
		return "grpc"
	}
	return "http"
}

func (c Config) metricInterval() time.Duration {
	if c.MetricIntervalSeconds <= 0 {
		return defaultMetricInterval
	}
	return time.Duration(c.MetricIntervalSeconds) * time.Second
}

// Service identifies the reporting process.
type Service struct {
	Name    string
	Version string
}

func newResource(service Service, config Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(service.Name),
		semconv.ServiceInstanceID(uuid.NewString()),
	}
	if service.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(service.Version))
	}
	if config.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(config.Environment))
	}
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, attrs...),
	)
}

// Telemetry holds what Setup installed, the providers are nil for
// signals that are not exported.
type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider

	stopProcessStats func() error
}

func (t Telemetry) Enabled() bool {
	return t.TracerProvider != nil || t.MeterProvider != nil
}

func (t Telemetry) Shutdown(ctx context.Context) error {
	var errlist []error
	if t.stopProcessStats != nil {
		errlist = append(errlist, t.stopProcessStats())
	}
	if t.TracerProvider != nil {
		errlist = append(errlist, t.TracerProvider.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errlist = append(errlist, t.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errlist...)
}

// Setup installs global trace and meter providers exporting to the
// configured collector.
func Setup(ctx context.Context, service Service, config Config) (Telemetry, error) {
	traces := config.exports(SignalTraces)
	metrics := config.exports(SignalMetrics)
	if !traces && !metrics {
		return Telemetry{}, nil
	}
	protocol := config.protocol()
	if protocol != "grpc" && protocol != "http" {
		return Telemetry{}, fmt.Errorf("unknown otlp protocol %q, expected grpc or http", config.Protocol)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	r, err := newResource(service, config)
	if err != nil {
		return Telemetry{}, err
	}

	var out Telemetry
	if traces {
		exporter, err := newSpanExporter(ctx, protocol, config)
		if err != nil {
			return Telemetry{}, fmt.Errorf("trace exporter: %w", err)
		}
		out.TracerProvider = trace.NewTracerProvider(
			trace.WithBatcher(exporter),
			trace.WithResource(r),
		)
		otel.SetTracerProvider(out.TracerProvider)
	}
	if metrics {
		exporter, err := newMetricExporter(ctx, protocol, config)
		if err != nil {
			return out, fmt.Errorf("metric exporter: %w", err)
		}
		out.MeterProvider = metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(config.metricInterval()))),
			metric.WithResource(r),
		)
		otel.SetMeterProvider(out.MeterProvider)

		if config.ProcessStats {
			out.stopProcessStats, err = ObserveProcess(out.MeterProvider.Meter(service.Name + "/process"))
			if err != nil {
				return out, err
			}
		}
	}

	slog.Info(
		"telemetry enabled",
		"endpoint", config.Endpoint,
		"protocol", protocol,
		"traces", traces,
		"metrics", metrics,
		"headers", len(config.Headers) > 0,
	)
	return out, nil
}

func newSpanExporter(ctx context.Context, protocol string, c Config) (trace.SpanExporter, error) {
	if protocol == "grpc" {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(c.Endpoint),
			otlptracegrpc.WithHeaders(c.Headers),
		)
	}
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(c.Endpoint),
		otlptracehttp.WithHeaders(c.Headers),
	)
}

func newMetricExporter(ctx context.Context, protocol string, c Config) (metric.Exporter, error) {
	if protocol == "grpc" {
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(c.Endpoint),
			otlpmetricgrpc.WithHeaders(c.Headers),
		)
	}
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(c.Endpoint),
		otlpmetrichttp.WithHeaders(c.Headers),
	)
}

var setupTestEnvironments sync.Map

// SetupForTesting sets up telemetry for a test binary once per service
// name. Tests export only when a telemetry.json5 is found above the
// working directory.
func SetupForTesting(serviceName string) func() {
	_, setupAlready := setupTestEnvironments.LoadOrStore(serviceName, true)
	if setupAlready {
		return func() {}
	}

	InitSlog(true)
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		panic(err)
	}
	tel, err := Setup(context.Background(), Service{Name: serviceName}, config)
	if err != nil {
		panic(err)
	}
	return func() {
		err := tel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	}
}
