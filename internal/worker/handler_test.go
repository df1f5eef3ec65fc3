package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"salesservice/internal/domain"
	"salesservice/internal/reports"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubGenerator struct {
	got domain.ReportCommand
	err error
}

func (g *stubGenerator) Generate(_ context.Context, cmd domain.ReportCommand) (reports.Result, error) {
	g.got = cmd
	if g.err != nil {
		return reports.Result{}, g.err
	}
	return reports.Result{CorrelationID: cmd.CorrelationID, Location: "/reports/x.csv"}, nil
}

func TestHandleGenerateReport(t *testing.T) {
	gen := &stubGenerator{}
	h := NewMessageHandler(gen, zaptest.NewLogger(t))

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cmd := domain.ReportCommand{
		CorrelationID: uuid.New(),
		RequestedAt:   time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
		StartDate:     &start,
	}
	payload, err := json.Marshal(cmd)
	require.NoError(t, err)

	require.NoError(t, h.HandleGenerateReport(context.Background(), kafkago.Message{Value: payload}))

	assert.Equal(t, cmd.CorrelationID, gen.got.CorrelationID)
	require.NotNil(t, gen.got.StartDate)
	assert.True(t, start.Equal(*gen.got.StartDate))
	assert.Nil(t, gen.got.EndDate)
	assert.Equal(t, domain.DefaultRequestedBy, gen.got.RequestedBy)
}

func TestHandleGenerateReportMalformed(t *testing.T) {
	h := NewMessageHandler(&stubGenerator{}, zaptest.NewLogger(t))

	for _, payload := range []string{`not json`, `{"requestedBy":"x"}`} {
		err := h.HandleGenerateReport(context.Background(), kafkago.Message{Value: []byte(payload)})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedCommand)
		assert.True(t, IsPermanent(err))
	}
}

func TestHandleGenerateReportPropagatesGeneratorError(t *testing.T) {
	boom := errors.New("disk full")
	h := NewMessageHandler(&stubGenerator{err: boom}, zaptest.NewLogger(t))
	payload, err := json.Marshal(domain.ReportCommand{CorrelationID: uuid.New()})
	require.NoError(t, err)

	err = h.HandleGenerateReport(context.Background(), kafkago.Message{Value: payload})
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsPermanent(err))
}
