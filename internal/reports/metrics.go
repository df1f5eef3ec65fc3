package reports

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	generated metric.Int64Counter
	failed    metric.Int64Counter
	duration  metric.Float64Histogram
}

func newMetrics(meter metric.Meter) *metrics {
	var m metrics
	var err error
	if m.generated, err = meter.Int64Counter("reports.generated",
		metric.WithDescription("Reports written to the sink"),
		metric.WithUnit("{report}")); err != nil {
		otel.Handle(err)
	}
	if m.failed, err = meter.Int64Counter("reports.failed",
		metric.WithDescription("Report attempts that returned an error"),
		metric.WithUnit("{report}")); err != nil {
		otel.Handle(err)
	}
	if m.duration, err = meter.Float64Histogram("reports.duration",
		metric.WithDescription("Time spent generating one report"),
		metric.WithUnit("s")); err != nil {
		otel.Handle(err)
	}
	return &m
}
