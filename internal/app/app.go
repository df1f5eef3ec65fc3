package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesservice/internal/catalog"
	"salesservice/internal/config"
	"salesservice/internal/httpapi"
	"salesservice/internal/orders"
	"salesservice/internal/reports"
	"salesservice/internal/worker"

	"go.uber.org/zap"
)

// Components name the process role in logs and telemetry resources.
const (
	ComponentAPI    = "api"
	ComponentWorker = "worker"
	ComponentCLI    = "cli"
)

// Application holds all the components and manages the application lifecycle
type Application struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container *Container
}

// NewApplication initializes the container for component.
func NewApplication(ctx context.Context, cfg *config.Config, component string) (*Application, error) {
	// Set up signal handling
	appCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	app := &Application{
		ctx:    appCtx,
		cancel: cancel,
	}

	// Initialize container (expensive singletons)
	container, err := NewContainer(app.ctx, cfg, component)
	if err != nil {
		cancel() // Clean up context if initialization fails
		return nil, err
	}
	app.container = container

	app.container.Logger().Info("Application initialized successfully", zap.String("component", component))
	return app, nil
}

// RunAPI serves the HTTP API until the context is cancelled, then drains
// in-flight requests.
func (app *Application) RunAPI() error {
	c := app.container
	cfg := c.Config()
	logger := c.Logger()

	store, err := c.Store(app.ctx)
	if err != nil {
		return err
	}
	writer, err := c.ReportWriter()
	if err != nil {
		return err
	}

	handler := httpapi.NewHandler(httpapi.Dependencies{
		Catalog:     catalog.NewService(store, logger),
		Orders:      orders.NewService(store, logger, c.Tracer()),
		Reports:     reports.NewProducer(writer, logger, c.Tracer()),
		Health:      store,
		Logger:      logger,
		RateLimiter: httpapi.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		BaseContext:  func(_ net.Listener) context.Context { return app.ctx },
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		Handler:      handler,
	}
	srvErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("address", srv.Addr))
		srvErr <- srv.ListenAndServe()
	}()

	// Wait for interruption.
	select {
	case err := <-srvErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-app.ctx.Done():
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server graceful shutdown failed: %w", err)
	}
	logger.Info("HTTP server shutdown complete.")
	return nil
}

// RunWorker consumes report commands until the queue has been idle for the
// configured timeout or the process is signalled.
func (app *Application) RunWorker() error {
	c := app.container
	cfg := c.Config()
	logger := c.Logger()

	store, err := c.Store(app.ctx)
	if err != nil {
		return err
	}
	sink, err := c.ReportSink(app.ctx)
	if err != nil {
		return err
	}
	deadLetter, err := c.DeadLetterWriter()
	if err != nil {
		return err
	}

	generator := reports.NewGenerator(store, sink, logger, c.Tracer(),
		reports.WithFilenameFormat(cfg.Report.FilenameFormat),
	)
	observer := worker.NewDrainObserver(cfg.Worker.IdleTimeout, app.cancel, logger)
	defer observer.Stop()

	consumer := worker.NewConsumerService(c.ReportReader(), deadLetter,
		worker.NewMessageHandler(generator, logger),
		logger,
		worker.WithObserver(observer),
		worker.WithRetryPolicy(worker.RetryPolicy{
			Limit:       cfg.Worker.RetryLimit,
			MinInterval: cfg.Worker.RetryMinInterval,
			MaxInterval: cfg.Worker.RetryMaxInterval,
		}),
	)
	return consumer.Start(app.ctx)
}

// RequestReport publishes a single report command and returns its acknowledgement.
func (app *Application) RequestReport(req reports.Request) (reports.Acknowledgement, error) {
	writer, err := app.container.ReportWriter()
	if err != nil {
		return reports.Acknowledgement{}, err
	}
	producer := reports.NewProducer(writer, app.container.Logger(), app.container.Tracer())
	return producer.RequestReport(app.ctx, req)
}

// Shutdown gracefully shuts down all application components
func (app *Application) Shutdown() {
	if app.container != nil {
		app.container.Logger().Info("Starting application shutdown...")
	}

	// Cancel context
	if app.cancel != nil {
		app.cancel()
	}

	// Shutdown container
	if app.container != nil {
		ctx, cancel := context.WithTimeout(context.Background(), config.ExportTimeout)
		defer cancel()
		app.container.Shutdown(ctx)
	}
}
