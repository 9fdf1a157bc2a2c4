package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/AntonStoeckl/uow-domain-events-go/config"
	"github.com/AntonStoeckl/uow-domain-events-go/domainevents"
	"github.com/AntonStoeckl/uow-domain-events-go/example/core"
	"github.com/AntonStoeckl/uow-domain-events-go/oteladapters"
	"github.com/AntonStoeckl/uow-domain-events-go/postgresuow"
	"github.com/AntonStoeckl/uow-domain-events-go/promadapters"
)

const instrumentationName = "github.com/AntonStoeckl/uow-domain-events-go/cmd/demo"

// observability holds the adapters shared by the store and the dispatcher.
type observability struct {
	logger           domainevents.Logger
	contextualLogger domainevents.ContextualLogger
	metricsCollector domainevents.MetricsCollector
	tracingCollector domainevents.TracingCollector
	registry         *prometheus.Registry
}

type application struct {
	logger     *slog.Logger
	store      *postgresuow.Store
	dispatcher *domainevents.Dispatcher
	registry   *prometheus.Registry
	publishers int
	closers    []io.Closer
}

func newApplication(ctx context.Context, cfg config.AppConfig, logger *slog.Logger) (*application, error) {
	obs := newObservability(cfg, logger)
	app := &application{logger: logger, registry: obs.registry}

	store, closer, err := openStore(ctx, cfg, obs)
	if err != nil {
		return nil, err
	}
	app.store = store
	app.closers = append(app.closers, closer)

	publishers, closers, err := newPublishers(cfg, obs)
	app.closers = append(app.closers, closers...)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.publishers = len(publishers)

	dispatcher, err := domainevents.NewDispatcher(dispatcherOptions(cfg, obs, publishers)...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}
	app.dispatcher = dispatcher

	return app, nil
}

func newObservability(cfg config.AppConfig, logger *slog.Logger) observability {
	obs := observability{logger: logger}

	switch cfg.Observability.Metrics {
	case config.MetricsOTel:
		obs.metricsCollector = oteladapters.NewMetricsCollector(otel.Meter(instrumentationName))
	case config.MetricsPrometheus:
		obs.registry = prometheus.NewRegistry()
		obs.metricsCollector = promadapters.NewMetricsCollector(obs.registry)
	}

	if cfg.Observability.Tracing {
		obs.tracingCollector = oteladapters.NewTracingCollector(otel.Tracer(instrumentationName))
		obs.contextualLogger = oteladapters.NewSlogBridgeLogger(instrumentationName)
	}

	return obs
}

func dispatcherOptions(
	cfg config.AppConfig,
	obs observability,
	publishers []domainevents.Publisher,
) []domainevents.Option {

	options := []domainevents.Option{
		domainevents.WithMapper(domainevents.NewJSONMapper()),
		domainevents.WithLogger(obs.logger),
	}

	if cfg.Dispatch.UnresolvedTypeTokens == config.PolicyFail {
		options = append(options, domainevents.WithUnresolvedTypeTokenPolicy(domainevents.FailOnUnresolvedTypeTokens))
	}

	if cfg.Dispatch.SharedBuffer {
		options = append(options, domainevents.WithStagingBuffer(domainevents.NewStagingBuffer()))
	}

	if obs.contextualLogger != nil {
		options = append(options, domainevents.WithContextualLogger(obs.contextualLogger))
	}

	if obs.metricsCollector != nil {
		options = append(options, domainevents.WithMetrics(obs.metricsCollector))
	}

	if obs.tracingCollector != nil {
		options = append(options, domainevents.WithTracing(obs.tracingCollector))
	}

	for _, publisher := range publishers {
		options = append(options, domainevents.WithPublisher(publisher))
	}

	return options
}

func storeOptions(obs observability) []postgresuow.Option {
	options := []postgresuow.Option{postgresuow.WithLogger(obs.logger)}

	if obs.contextualLogger != nil {
		options = append(options, postgresuow.WithContextualLogger(obs.contextualLogger))
	}

	if obs.metricsCollector != nil {
		options = append(options, postgresuow.WithMetrics(obs.metricsCollector))
	}

	if obs.tracingCollector != nil {
		options = append(options, postgresuow.WithTracing(obs.tracingCollector))
	}

	return options
}

// openStore connects with the configured driver and creates the demo tables.
func openStore(ctx context.Context, cfg config.AppConfig, obs observability) (*postgresuow.Store, io.Closer, error) {
	dsn := cfg.Postgres.DSN
	options := storeOptions(obs)

	switch cfg.Postgres.Driver {
	case config.DriverSQLDB:
		db, err := config.NewSQLDB(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}

		if _, err := db.ExecContext(ctx, core.Schema); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("create schema: %w", err)
		}

		store, err := postgresuow.NewStoreFromSQLDB(db, options...)

		return store, db, err

	case config.DriverSQLX:
		db, err := config.NewSQLX(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}

		if _, err := db.ExecContext(ctx, core.Schema); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("create schema: %w", err)
		}

		store, err := postgresuow.NewStoreFromSQLX(db, options...)

		return store, db, err

	default:
		pool, err := config.NewPGXPool(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}

		if _, err := pool.Exec(ctx, core.Schema); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("create schema: %w", err)
		}

		store, err := postgresuow.NewStoreFromPGXPool(pool, options...)

		return store, closerFunc(func() error { pool.Close(); return nil }), err
	}
}

// Router returns the HTTP routes of the demo.
func (a *application) Router() http.Handler {
	handler := newRootsHandler(
		func() unitOfWork { return a.store.NewSession() },
		a.dispatcher,
		a.logger,
	)

	return newRouter(handler, a.registry)
}

func (a *application) PublisherCount() int {
	return a.publishers
}

// Close releases the connections in reverse order of creation.
func (a *application) Close() {
	var errs []error

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		a.logger.Error("closing connections failed", "error", err.Error())
	}
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
