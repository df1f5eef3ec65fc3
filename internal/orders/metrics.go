package orders

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	ordersCreated  metric.Int64Counter
	ordersRejected metric.Int64Counter
}

func newMetrics(meter metric.Meter) *metrics {
	created, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders committed"),
		metric.WithUnit("{order}"))
	if err != nil {
		otel.Handle(err)
	}
	rejected, err := meter.Int64Counter("orders.rejected",
		metric.WithDescription("Order creations that failed, by reason"),
		metric.WithUnit("{order}"))
	if err != nil {
		otel.Handle(err)
	}
	return &metrics{ordersCreated: created, ordersRejected: rejected}
}
