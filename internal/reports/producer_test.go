package reports

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"salesservice/internal/domain"
	"salesservice/internal/platform/kafka"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
)

type recordingProducer struct {
	messages []kafkago.Message
	err      error
}

func (p *recordingProducer) WriteMessage(_ context.Context, msg kafkago.Message) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func newTestProducer(t *testing.T, pub *recordingProducer, now time.Time) *Producer {
	p := NewProducer(pub, zaptest.NewLogger(t), tracenoop.NewTracerProvider().Tracer("test"))
	p.now = func() time.Time { return now }
	p.newID = func() uuid.UUID { return uuid.MustParse("11111111-2222-3333-4444-555555555555") }
	return p
}

func TestRequestReportDefaultsToCurrentMonth(t *testing.T) {
	pub := &recordingProducer{}
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	p := newTestProducer(t, pub, now)

	ack, err := p.RequestReport(context.Background(), Request{})
	require.NoError(t, err)

	assert.Equal(t, StatusAccepted, ack.Status)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", ack.CorrelationID.String())
	assert.Equal(t, now.Add(5*time.Minute), ack.EstimatedCompletionTime)
	assert.Contains(t, ack.Message, "2025-01-01 to 2025-01-31")

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, ack.CorrelationID.String(), string(msg.Key))
	assert.Equal(t, ack.CorrelationID.String(), kafka.Header(msg.Headers, kafka.HeaderCorrelationID))

	var cmd domain.ReportCommand
	require.NoError(t, json.Unmarshal(msg.Value, &cmd))
	assert.Equal(t, ack.CorrelationID, cmd.CorrelationID)
	assert.Equal(t, domain.DefaultRequestedBy, cmd.RequestedBy)
	assert.True(t, now.Equal(cmd.RequestedAt))
	require.NotNil(t, cmd.StartDate)
	require.NotNil(t, cmd.EndDate)
	assert.True(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Equal(*cmd.StartDate))
	assert.True(t, time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC).Equal(*cmd.EndDate))
}

func TestRequestReportKeepsExplicitRange(t *testing.T) {
	pub := &recordingProducer{}
	p := newTestProducer(t, pub, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	_, err := p.RequestReport(context.Background(), Request{StartDate: &start, EndDate: &end, RequestedBy: "finance"})
	require.NoError(t, err)

	var cmd domain.ReportCommand
	require.NoError(t, json.Unmarshal(pub.messages[0].Value, &cmd))
	assert.True(t, start.Equal(*cmd.StartDate))
	assert.True(t, end.Equal(*cmd.EndDate))
	assert.Equal(t, "finance", cmd.RequestedBy)
}

func TestRequestReportRejectsInvertedRange(t *testing.T) {
	pub := &recordingProducer{}
	p := newTestProducer(t, pub, time.Now())
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := p.RequestReport(context.Background(), Request{StartDate: &start, EndDate: &end})
	require.Error(t, err)
	assert.True(t, domain.IsInvalidArgument(err))
	assert.Empty(t, pub.messages)
}

func TestRequestReportPublishFailureIsTransient(t *testing.T) {
	pub := &recordingProducer{err: errors.New("broker unavailable")}
	p := newTestProducer(t, pub, time.Now())

	_, err := p.RequestReport(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}
