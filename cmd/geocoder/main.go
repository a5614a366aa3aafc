package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/adapter/arcgis"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/geocoder-arcgis-geojson/internal/adapter/kafka"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/config"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/geocoder"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/observability"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	registry := geocoder.NewRegistry(func(creds domain.Credentials) domain.Provider {
		client := arcgis.NewClient(arcgis.Options{
			Credentials: creds,
			AuthURL:     cfg.ArcGISAuthURL,
			Timeout:     cfg.ArcGISTimeout,
			RateLimit:   cfg.ArcGISRateLimit,
			Metrics:     metrics,
			Logger:      logger,
		})
		return arcgis.NewInstrumented(client, metrics)
	}, metrics.RegistryClients)
	svc := geocoder.NewService(registry, nil, logger)

	creds := cfg.Credentials()
	if creds.ClientID == "" {
		logger.Info("no arcgis credentials configured, bulk and stored results unavailable")
	}

	var ready sharedobs.ReadinessChecker = svc
	var p *pipeline.Pipeline
	var reader *kafkaadapter.Reader
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p = pipeline.New(reader, pipeline.NewTransformer(svc, creds, logger), writer, logger, metrics, cfg.BatchSize)
		ready = p
		logger.Info("bulk pipeline enabled", "source_topic", cfg.KafkaSourceTopic, "sink_topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("bulk pipeline disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, creds, ready, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if p != nil {
		g.Go(func() error { return p.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
	}

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
}
