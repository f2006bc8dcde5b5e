package app

import (
	"context"
	"fmt"
	"time"

	"candleservice/config"
	"candleservice/internal/aggregator"
	"candleservice/internal/index"
	"candleservice/internal/ingest"
	"candleservice/internal/memorystore"
	"candleservice/internal/metrics"
	"candleservice/internal/refresh"
	"candleservice/internal/server"
	"candleservice/pkg/storage/tickdb"
	"candleservice/pkg/timezone"
	"candleservice/pkg/wsfeed"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// App is the wired candle service.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	source    ingest.Source
	closeSrc  func() error
	opts      ingest.Options
	store     *memorystore.Store
	metrics   *metrics.Metrics
	refresher *refresh.Refresher
	server    *server.Server
}

// New builds the tick source, loads the initial index and prepares the HTTP
// server. The index is fully built before New returns.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	agg, err := aggregator.NewFromString(cfg.Candle.Fallback)
	if err != nil {
		return nil, err
	}
	loc, err := timezone.Load(cfg.Source.Timezone)
	if err != nil {
		return nil, fmt.Errorf("source timezone: %w", err)
	}

	src, closeSrc, err := NewSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		cfg:      cfg,
		logger:   logger,
		source:   src,
		closeSrc: closeSrc,
		opts:     ingest.Options{Location: loc, ProgressEvery: cfg.Source.ProgressEvery},
		metrics:  metrics.New(reg),
	}

	start := time.Now()
	idx := a.build(ctx)
	a.metrics.ObserveBuild(idx.Stats(), time.Since(start), true)
	a.store = memorystore.NewStore(idx)

	if cfg.Index.RefreshInterval > 0 {
		a.refresher = &refresh.Refresher{
			Interval: cfg.Index.RefreshInterval,
			Build:    a.build,
			Store:    a.store,
			Metrics:  a.metrics,
			Logger:   logger.With(zap.String("component", "refresh")),
		}
	}

	a.server, err = server.New(cfg.Server, a.store, agg, a.metrics, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if hc, ok := src.(server.HealthChecker); ok {
		a.server.SetSourceHealth(hc)
	}

	logger.Info("candle service ready",
		zap.String("source", src.Name()),
		zap.String("fallback", string(agg.Fallback())),
		zap.Int("rows", idx.Len()),
		zap.Int("codes", idx.Stats().Codes))
	return a, nil
}

func (a *App) build(ctx context.Context) *index.Index {
	return ingest.Load(ctx, a.source, a.opts, a.logger.With(zap.String("component", "ingest")))
}

// Run serves HTTP until ctx is done, then shuts the server down gracefully.
// A server that fails to start also stops the refresher.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var refreshDone <-chan struct{}
	if a.refresher != nil {
		refreshDone = a.refresher.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	var err error
	select {
	case err = <-errCh:
		if err != nil {
			err = fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("shutting down")
		if shutdownErr := a.server.Shutdown(context.Background()); shutdownErr != nil {
			err = fmt.Errorf("http shutdown: %w", shutdownErr)
		}
		<-errCh
	}

	cancel()
	if refreshDone != nil {
		<-refreshDone
	}
	return err
}

// Store exposes the snapshot store.
func (a *App) Store() *memorystore.Store {
	return a.store
}

// Server exposes the HTTP server, mostly for tests.
func (a *App) Server() *server.Server {
	return a.server
}

// Close releases the tick source.
func (a *App) Close() error {
	if a.closeSrc == nil {
		return nil
	}
	return a.closeSrc()
}

// NewSource creates the tick source selected by cfg.Source.Kind. The returned
// close function releases its resources (database handles). A database that
// cannot be reached becomes an unavailable source rather than an error.
func NewSource(cfg *config.Config, logger *zap.Logger) (ingest.Source, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Source.Kind {
	case "csv":
		return ingest.NewCSVSource(cfg.Source.CSV.Path), noop, nil

	case "sqlite":
		name := "sqlite:" + cfg.Source.SQLite.Path
		client, err := tickdb.NewSQLiteClient(cfg.Source.SQLite.Path)
		if err != nil {
			return ingest.Unavailable(name, fmt.Errorf("open sqlite: %w", err)), noop, nil
		}
		if err := client.AutoMigrateTickRecord(); err != nil {
			client.Close()
			return ingest.Unavailable(name, err), noop, nil
		}
		return ingest.NewSQLSource(client, name), client.Close, nil

	case "postgres":
		name := "postgres:" + cfg.Postgres.DBName
		client, err := tickdb.InitializePostgres(cfg.Postgres, cfg.Log.Environment, false)
		if err != nil {
			return ingest.Unavailable(name, fmt.Errorf("connect postgres: %w", err)), noop, nil
		}
		return ingest.NewSQLSource(client, name), client.Close, nil

	case "ws":
		var sub []byte
		if cfg.Source.WS.Subscribe != "" {
			sub = []byte(cfg.Source.WS.Subscribe)
		}
		return &ingest.WSSource{
			URL:     cfg.Source.WS.URL,
			Capture: cfg.Source.WS.Capture,
			MaxRows: cfg.Source.WS.MaxRows,
			Options: wsfeed.Options{
				Subscribe:     sub,
				DialTimeout:   cfg.Source.WS.Timeout,
				MaxReconnects: cfg.Source.WS.MaxReconnects,
			},
			Logger: logger.With(zap.String("component", "wsfeed")),
		}, noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}
