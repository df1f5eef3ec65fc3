package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Header keys set on report messages.
const (
	HeaderCorrelationID = "x-correlation-id"
	HeaderError         = "x-error"
	HeaderAttempts      = "x-attempts"
	HeaderSourceTopic   = "x-source-topic"
	HeaderSourceOffset  = "x-source-offset"
)

// ExtractTraceContext extracts OpenTelemetry trace context from Kafka message headers
func ExtractTraceContext(ctx context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		carrier[header.Key] = string(header.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// Header returns the last value stored under key, or "".
func Header(headers []kafka.Header, key string) string {
	for i := len(headers) - 1; i >= 0; i-- {
		if headers[i].Key == key {
			return string(headers[i].Value)
		}
	}
	return ""
}

// SetHeader replaces key in headers or appends it.
func SetHeader(headers []kafka.Header, key, value string) []kafka.Header {
	for i := range headers {
		if headers[i].Key == key {
			headers[i].Value = []byte(value)
			return headers
		}
	}
	return append(headers, kafka.Header{Key: key, Value: []byte(value)})
}
