package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"salesservice/internal/domain"
	"salesservice/internal/platform/kafka"
	"salesservice/internal/platform/observability"
	"salesservice/internal/reports"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler defines the interface for processing incoming messages.
type MessageHandler interface {
	HandleGenerateReport(ctx context.Context, msg kafkago.Message) error
}

// ReportGenerator builds the report for a decoded command.
type ReportGenerator interface {
	Generate(ctx context.Context, cmd domain.ReportCommand) (reports.Result, error)
}

// ReportMessageHandler decodes report commands and runs the generator.
type ReportMessageHandler struct {
	generator ReportGenerator
	logger    observability.Logger
}

// NewMessageHandler creates a new MessageHandler instance with explicit dependencies
func NewMessageHandler(generator ReportGenerator, logger observability.Logger) MessageHandler {
	return &ReportMessageHandler{
		generator: generator,
		logger:    logger,
	}
}

// HandleGenerateReport processes one report command. Undecodable payloads
// return an error wrapping ErrMalformedCommand.
func (h *ReportMessageHandler) HandleGenerateReport(ctx context.Context, msg kafkago.Message) error {
	// Extract trace context to connect spans across services
	msgCtx := kafka.ExtractTraceContext(ctx, msg.Headers)

	h.logger.Info("📨 Report command received",
		zap.ByteString("key", msg.Key),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	cmd, err := decodeCommand(msg.Value)
	if err != nil {
		h.logger.Error("❌ Invalid report command",
			zap.Error(err),
			zap.ByteString("raw_value", msg.Value),
		)
		return err
	}

	result, err := h.generator.Generate(msgCtx, cmd)
	if err != nil {
		h.logger.Error("❌ Failed to generate report",
			zap.Error(err),
			zap.String("correlation_id", cmd.CorrelationID.String()),
		)
		return err
	}

	h.logger.Info("✅ Report command processed",
		zap.String("correlation_id", cmd.CorrelationID.String()),
		zap.String("location", result.Location),
	)
	return nil
}

func decodeCommand(payload []byte) (domain.ReportCommand, error) {
	var cmd domain.ReportCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return domain.ReportCommand{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	if cmd.CorrelationID == uuid.Nil {
		return domain.ReportCommand{}, fmt.Errorf("%w: missing correlationId", ErrMalformedCommand)
	}
	if cmd.RequestedBy == "" {
		cmd.RequestedBy = domain.DefaultRequestedBy
	}
	return cmd, nil
}
