package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"salesservice/internal/config"
	"salesservice/internal/platform/database"
	"salesservice/internal/platform/kafka"
	"salesservice/internal/platform/observability"
	"salesservice/internal/reports"
	"salesservice/internal/store/sqlstore"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Container holds expensive-to-create singleton resources and dependencies.
// Database and Kafka clients are created on first use so each command only
// opens what it needs.
type Container struct {
	config    *config.Config
	component string

	logger         *zap.Logger
	tracer         observability.Tracer
	tracerProvider trace.TracerProvider

	db    *sql.DB
	store *sqlstore.Store

	reportWriter     kafka.Producer
	deadLetterWriter kafka.Producer
	reportReader     kafka.Consumer
	sink             reports.Sink

	otelShutdown []observability.ShutdownFunc
}

// NewContainer creates the logger and telemetry providers for component.
func NewContainer(ctx context.Context, cfg *config.Config, component string) (*Container, error) {
	container := &Container{
		config:    cfg,
		component: component,
	}

	// Initialize logger
	if err := container.setupLogger(); err != nil {
		return nil, err
	}

	container.setupObservability(ctx)
	return container, nil
}

func (c *Container) setupLogger() error {
	// Start with basic logger
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}

	c.logger = logger
	return nil
}

// setupObservability configures OpenTelemetry logging, tracing and metrics.
// Exporter failures are logged and the service keeps running without them.
func (c *Container) setupObservability(ctx context.Context) {
	otelLogShutdown, err := observability.SetupLoggingSDK(ctx, c.config, c.component)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry logging", zap.Error(err))
	}
	c.otelShutdown = append(c.otelShutdown, otelLogShutdown)

	tp, otelTraceShutdown, err := observability.SetupTracingSDK(ctx, c.config, c.component)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry tracing", zap.Error(err))
	}
	c.otelShutdown = append(c.otelShutdown, otelTraceShutdown)
	if tp != nil {
		c.tracerProvider = tp
	} else {
		c.tracerProvider = otel.GetTracerProvider()
	}

	otelMetricShutdown, err := observability.SetupMetricsSDK(ctx, c.config, c.component)
	if err != nil {
		c.logger.Error("Failed to setup OpenTelemetry metrics", zap.Error(err))
	}
	c.otelShutdown = append(c.otelShutdown, otelMetricShutdown)

	c.reinitializeLoggerWithOTel()
	c.tracer = c.tracerProvider.Tracer(config.ServiceName)
}

// reinitializeLoggerWithOTel tees console JSON output with the OTel bridge.
func (c *Container) reinitializeLoggerWithOTel() {
	logProvider := global.GetLoggerProvider()
	instrumentationScopeName := config.ServiceName + "." + c.component
	otelZapCore := otelzap.NewCore(instrumentationScopeName,
		otelzap.WithLoggerProvider(logProvider),
	)

	consoleEncoderConfig := zap.NewProductionEncoderConfig()
	consoleEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(consoleEncoderConfig),
		zapcore.Lock(os.Stdout),
		zap.InfoLevel,
	)

	finalCore := zapcore.NewTee(otelZapCore, consoleCore)
	c.logger = zap.New(finalCore,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(
			zap.String("service.name", config.ServiceName),
			zap.String("service.component", c.component),
		),
	)
	c.logger.Info("Logger re-initialized with OpenTelemetry bridge")
}

// Store opens the database and applies the schema on first use.
func (c *Container) Store(ctx context.Context) (*sqlstore.Store, error) {
	if c.store != nil {
		return c.store, nil
	}

	db, dialect, err := database.Open(ctx, c.config.DatabaseDriver, c.config.DatabaseURL)
	if err != nil {
		return nil, err
	}
	store := sqlstore.New(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	c.db = db
	c.store = store
	c.logger.Info("Database ready", zap.String("driver", c.config.DatabaseDriver))
	return store, nil
}

// ReportWriter publishes report commands with trace context injected.
func (c *Container) ReportWriter() (kafka.Producer, error) {
	if c.reportWriter == nil {
		writer, err := c.newTracedWriter(c.config.ReportTopic)
		if err != nil {
			return nil, err
		}
		c.reportWriter = writer
	}
	return c.reportWriter, nil
}

func (c *Container) DeadLetterWriter() (kafka.Producer, error) {
	if c.deadLetterWriter == nil {
		writer, err := c.newTracedWriter(c.config.DeadLetterTopic)
		if err != nil {
			return nil, err
		}
		c.deadLetterWriter = writer
	}
	return c.deadLetterWriter, nil
}

func (c *Container) newTracedWriter(topic string) (kafka.Producer, error) {
	baseWriter := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.config.KafkaBroker),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           config.BatchTimeout,
		BatchSize:              config.BatchSize,
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}

	writer, err := otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(c.tracerProvider),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(topic),
				attribute.String("messaging.kafka.client_id", config.ServiceName),
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka writer for %s: %w", topic, err)
	}
	return writer, nil
}

// ReportReader joins the worker consumer group. Offsets are committed
// explicitly by the consumer service.
func (c *Container) ReportReader() kafka.Consumer {
	if c.reportReader == nil {
		c.reportReader = kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:       []string{c.config.KafkaBroker},
			Topic:         c.config.ReportTopic,
			GroupID:       c.config.GroupID,
			QueueCapacity: c.config.Worker.Prefetch,
		})
	}
	return c.reportReader
}

// ReportSink returns the configured destination for generated files.
func (c *Container) ReportSink(ctx context.Context) (reports.Sink, error) {
	if c.sink != nil {
		return c.sink, nil
	}

	switch c.config.Report.Sink {
	case config.SinkS3:
		sink, err := reports.NewS3Sink(ctx, reports.S3SinkConfig{
			Bucket:   c.config.Report.S3Bucket,
			Region:   c.config.Report.S3Region,
			Endpoint: c.config.Report.S3Endpoint,
			Prefix:   c.config.Report.S3Prefix,
		})
		if err != nil {
			return nil, err
		}
		c.sink = sink
	default:
		c.sink = reports.NewFileSink(c.config.Report.OutputDir)
	}
	return c.sink, nil
}

// Shutdown gracefully shuts down all infrastructure components
func (c *Container) Shutdown(ctx context.Context) {
	c.logger.Info("Shutting down infrastructure...")

	// Close Kafka components
	if c.reportReader != nil {
		if err := c.reportReader.Close(); err != nil {
			c.logger.Error("Failed to close report reader", zap.Error(err))
		}
	}
	for name, writer := range map[string]kafka.Producer{"report": c.reportWriter, "dead-letter": c.deadLetterWriter} {
		if writer == nil {
			continue
		}
		if err := writer.Close(); err != nil {
			c.logger.Error("Failed to close kafka writer", zap.String("writer", name), zap.Error(err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
		}
	}

	c.logger.Info("Infrastructure shutdown complete")

	// Shutdown OpenTelemetry last so the messages above are exported.
	for i := len(c.otelShutdown) - 1; i >= 0; i-- {
		if err := c.otelShutdown[i](ctx); err != nil {
			c.logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}

	// Sync logger
	if err := c.logger.Sync(); err != nil {
		// Can't log this error since logger might be closed
		fmt.Printf("Failed to sync logger: %v\n", err)
	}
}

// Getters for accessing infrastructure components
func (c *Container) Config() *config.Config      { return c.config }
func (c *Container) Logger() observability.Logger { return c.logger }
func (c *Container) Tracer() observability.Tracer { return c.tracer }
