package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"salesservice/internal/domain"
	"salesservice/internal/platform/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "salesservice/internal/reports"

// DefaultFilenameFormat is the time layout used as the report file prefix.
const DefaultFilenameFormat = "20060102_150405"

// Repository reads the joined sale rows a report is built from.
type Repository interface {
	SalesReportRows(ctx context.Context, start, end time.Time) ([]domain.ReportDataRow, error)
}

// Result describes a generated report.
type Result struct {
	CorrelationID uuid.UUID
	Location      string
	Rows          int
	Start         time.Time
	End           time.Time
}

// Generator turns a report command into a CSV file.
type Generator struct {
	repo           Repository
	sink           Sink
	logger         observability.Logger
	tracer         observability.Tracer
	filenameFormat string
	now            func() time.Time
	metrics        *metrics
}

type GeneratorOption func(*Generator)

func WithFilenameFormat(layout string) GeneratorOption {
	return func(g *Generator) {
		if layout != "" {
			g.filenameFormat = layout
		}
	}
}

func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

func WithMeter(meter metric.Meter) GeneratorOption {
	return func(g *Generator) { g.metrics = newMetrics(meter) }
}

func NewGenerator(repo Repository, sink Sink, logger observability.Logger, tracer observability.Tracer, opts ...GeneratorOption) *Generator {
	g := &Generator{
		repo:           repo,
		sink:           sink,
		logger:         logger,
		tracer:         tracer,
		filenameFormat: DefaultFilenameFormat,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.metrics == nil {
		g.metrics = newMetrics(otel.Meter(instrumentationName))
	}
	return g
}

// FileName builds <timestamp>_<correlationId>_sales_report.csv.
func FileName(at time.Time, layout string, correlationID uuid.UUID) string {
	return fmt.Sprintf("%s_%s_sales_report.csv", at.UTC().Format(layout), correlationID)
}

// Generate queries the rows for the command's range, renders them and
// hands the file to the sink.
func (g *Generator) Generate(ctx context.Context, cmd domain.ReportCommand) (Result, error) {
	startedAt := g.now()
	ctx, span := g.tracer.Start(ctx, "reports.generate")
	defer span.End()

	start, end := ResolveRange(cmd, startedAt.UTC())
	span.SetAttributes(
		attribute.String("report.correlation_id", cmd.CorrelationID.String()),
		attribute.String("report.requested_by", cmd.RequestedBy),
		attribute.String("report.start", start.Format(time.RFC3339)),
		attribute.String("report.end", end.Format(time.RFC3339)),
	)

	result, err := g.generate(ctx, cmd, start, end, startedAt)
	g.metrics.duration.Record(ctx, time.Since(startedAt).Seconds())
	if err != nil {
		g.metrics.failed.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	g.metrics.generated.Add(ctx, 1)
	span.SetAttributes(attribute.Int("report.rows", result.Rows))
	span.SetStatus(codes.Ok, "Report generated")
	g.logger.Info("📊 Sales report generated",
		zap.String("correlation_id", cmd.CorrelationID.String()),
		zap.String("location", result.Location),
		zap.Int("rows", result.Rows),
	)
	return result, nil
}

func (g *Generator) generate(ctx context.Context, cmd domain.ReportCommand, start, end, startedAt time.Time) (Result, error) {
	if start.After(end) {
		return Result{}, domain.NewInvalidArgumentError("startDate", "must not be after endDate")
	}

	rows, err := g.repo.SalesReportRows(ctx, start, end)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load report rows: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return Result{}, fmt.Errorf("failed to render report: %w", err)
	}

	location, err := g.sink.Save(ctx, FileName(startedAt, g.filenameFormat, cmd.CorrelationID), buf.Bytes())
	if err != nil {
		return Result{}, err
	}

	return Result{
		CorrelationID: cmd.CorrelationID,
		Location:      location,
		Rows:          len(rows),
		Start:         start,
		End:           end,
	}, nil
}
