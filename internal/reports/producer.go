package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"salesservice/internal/domain"
	"salesservice/internal/platform/kafka"
	"salesservice/internal/platform/observability"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	StatusAccepted = "Accepted"
	// EstimatedProcessingTime is added to the request time to tell callers when to look for the file.
	EstimatedProcessingTime = 5 * time.Minute
)

// Request is what a caller supplies. Missing bounds default to the current month.
type Request struct {
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	RequestedBy string     `json:"requestedBy,omitempty"`
}

// Acknowledgement is returned as soon as the command is queued.
type Acknowledgement struct {
	CorrelationID           uuid.UUID `json:"correlationId"`
	Status                  string    `json:"status"`
	Message                 string    `json:"message"`
	EstimatedCompletionTime time.Time `json:"estimatedCompletionTime"`
}

// Producer publishes report commands for the worker.
type Producer struct {
	publisher kafka.Producer
	logger    observability.Logger
	tracer    observability.Tracer
	now       func() time.Time
	newID     func() uuid.UUID
}

func NewProducer(publisher kafka.Producer, logger observability.Logger, tracer observability.Tracer) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
		tracer:    tracer,
		now:       time.Now,
		newID:     uuid.New,
	}
}

// RequestReport validates the range, publishes a command and returns
// without waiting for the report.
func (p *Producer) RequestReport(ctx context.Context, req Request) (Acknowledgement, error) {
	ctx, span := p.tracer.Start(ctx, "reports.request", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	now := p.now().UTC()
	start, end := CurrentMonthRange(now)
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		end = req.EndDate.UTC()
	}
	if start.After(end) {
		err := domain.NewInvalidArgumentError("startDate", "must not be after endDate")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Acknowledgement{}, err
	}

	requestedBy := strings.TrimSpace(req.RequestedBy)
	if requestedBy == "" {
		requestedBy = domain.DefaultRequestedBy
	}

	cmd := domain.ReportCommand{
		CorrelationID: p.newID(),
		RequestedAt:   now,
		StartDate:     &start,
		EndDate:       &end,
		RequestedBy:   requestedBy,
	}
	span.SetAttributes(
		attribute.String("report.correlation_id", cmd.CorrelationID.String()),
		attribute.String("report.requested_by", requestedBy),
	)

	payload, err := json.Marshal(cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Acknowledgement{}, fmt.Errorf("failed to encode report command: %w", err)
	}

	msg := kafkago.Message{
		Key:     []byte(cmd.CorrelationID.String()),
		Value:   payload,
		Headers: []kafkago.Header{{Key: kafka.HeaderCorrelationID, Value: []byte(cmd.CorrelationID.String())}},
	}
	if err := p.publisher.WriteMessage(ctx, msg); err != nil {
		p.logger.Error("❌ Failed to publish report command",
			zap.Error(err),
			zap.String("correlation_id", cmd.CorrelationID.String()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Acknowledgement{}, domain.NewTransientError("publish report command", err)
	}

	p.logger.Info("📤 Report command published",
		zap.String("correlation_id", cmd.CorrelationID.String()),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.String("requested_by", requestedBy),
	)
	span.SetStatus(codes.Ok, "Report command published")

	return Acknowledgement{
		CorrelationID: cmd.CorrelationID,
		Status:        StatusAccepted,
		Message: fmt.Sprintf("Sales report for %s to %s has been queued",
			start.Format(time.DateOnly), end.Format(time.DateOnly)),
		EstimatedCompletionTime: now.Add(EstimatedProcessingTime),
	}, nil
}
