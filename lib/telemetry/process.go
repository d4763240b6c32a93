package telemetry

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel/metric"
)

// ObserveProcess registers gauges for the process's cpu usage, heap and
// goroutines, one goroutine runs per active tracker so the last one
// follows the tracker count. They are read at every metric export until
// the returned function is called.
func ObserveProcess(meter metric.Meter) (func() error, error) {
	cpuUsage, err := meter.Float64ObservableGauge(
		"process.cpu.usage",
		metric.WithUnit("%"),
		metric.WithDescription("CPU usage of the host since the previous export."),
	)
	if err != nil {
		return nil, err
	}
	heap, err := meter.Int64ObservableGauge(
		"process.heap.allocated",
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	goroutines, err := meter.Int64ObservableGauge("process.goroutines")
	if err != nil {
		return nil, err
	}

	registration, err := meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			o.ObserveInt64(heap, int64(mem.HeapAlloc))
			o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))

			// a zero interval compares against the previous call
			usage, err := cpu.PercentWithContext(ctx, 0, false)
			if err == nil && len(usage) > 0 {
				o.ObserveFloat64(cpuUsage, usage[0])
			}
			return nil
		},
		cpuUsage, heap, goroutines,
	)
	if err != nil {
		return nil, err
	}
	return registration.Unregister, nil
}
