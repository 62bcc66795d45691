package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	httpadapter "github.com/couchcryptid/crime-watch/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/crime-watch/internal/adapter/kafka"
	"github.com/couchcryptid/crime-watch/internal/adapter/mapbox"
	"github.com/couchcryptid/crime-watch/internal/adapter/postgres"
	"github.com/couchcryptid/crime-watch/internal/adapter/upstream"
	"github.com/couchcryptid/crime-watch/internal/config"
	"github.com/couchcryptid/crime-watch/internal/dashboard"
	"github.com/couchcryptid/crime-watch/internal/domain"
	"github.com/couchcryptid/crime-watch/internal/observability"
	"github.com/couchcryptid/crime-watch/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher, closeFetcher, err := newFetcher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFetcher()

	// Geocoder is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			return err
		}
		geocoder = cached
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var clock clockwork.Clock = clockwork.NewRealClock()
	if !cfg.FixedNow.IsZero() {
		clock = clockwork.NewFakeClockAt(cfg.FixedNow)
		logger.Info("dashboard clock pinned", "now", cfg.FixedNow)
	}

	opts := dashboard.Options{
		Fetcher:  fetcher,
		Geocoder: geocoder,
		Clock:    clock,
		Location: cfg.Location,
		Map: domain.MapDefaults{
			CenterLat: cfg.MapCenterLat,
			CenterLon: cfg.MapCenterLon,
			Zoom:      cfg.MapZoom,
			TileURL:   cfg.TileURL,
		},
		Metrics: metrics,
		Logger:  logger,
	}

	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts.Publisher = writer
	}

	dash := dashboard.New(opts)
	// A failed initial load is not fatal: the API serves an empty dashboard
	// and readiness stays false until a reload succeeds.
	_ = dash.Load(ctx)

	var ingest *pipeline.Pipeline
	ready := observability.AllReady(dash)
	if reader != nil {
		ingest = pipeline.New(reader, pipeline.NewTransformer(logger), dash, logger, metrics, cfg.BatchSize)
		ready = observability.AllReady(dash, ingest)
	}

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:           cfg.HTTPAddr,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Dashboard:      dash,
		Ready:          ready,
		Metrics:        metrics,
		Logger:         logger,
	})

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	if ingest != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ingest.Run(ctx); err != nil {
				logger.Error("ingestion error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()

	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// newFetcher builds the report source selected by REPORT_SOURCE.
func newFetcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dashboard.ReportFetcher, func(), error) {
	switch cfg.ReportSource {
	case config.SourceHTTP:
		logger.Info("report source", "source", cfg.ReportSource, "url", cfg.ReportsURL)
		return upstream.NewClient(cfg.ReportsURL, cfg.ReportsToken, cfg.UpstreamTimeout, logger), func() {}, nil
	case config.SourcePostgres:
		src, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.DatabaseMigrate {
			if err := src.EnsureSchema(ctx); err != nil {
				src.Close()
				return nil, nil, err
			}
		}
		logger.Info("report source", "source", cfg.ReportSource)
		return src, src.Close, nil
	default:
		logger.Info("report source", "source", cfg.ReportSource, "path", cfg.ReportsFile)
		return upstream.NewFileSource(cfg.ReportsFile), func() {}, nil
	}
}
