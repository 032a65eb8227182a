// Command gridder consumes raw soundings from Kafka, grids each one along a
// vertical coordinate, and publishes the gridded profiles to the sink topic
// and the local SQLite store.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/profile-gridding-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/profile-gridding-service/internal/adapter/kafka"
	"github.com/couchcryptid/profile-gridding-service/internal/adapter/sqlite"
	"github.com/couchcryptid/profile-gridding-service/internal/config"
	"github.com/couchcryptid/profile-gridding-service/internal/domain"
	"github.com/couchcryptid/profile-gridding-service/internal/observability"
	"github.com/couchcryptid/profile-gridding-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	policy := binPolicy(cfg)
	logger.Info("gridding configured",
		"coordinate", cfg.GridCoordinate,
		"variables", cfg.GridVariables,
		"key_kind", policy.Kind(),
		"bin_size", policy.Size(),
	)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(cfg.GridCoordinate, cfg.GridVariables, policy, logger)

	sinks := []pipeline.Sink{}
	var store *sqlite.Store
	if cfg.StorePath != "" {
		store, err = sqlite.Open(cfg.StorePath, logger)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, pipeline.Sink{Name: "sqlite", Loader: store})
	} else {
		logger.Info("gridded profile store disabled")
	}
	sinks = append(sinks, pipeline.Sink{Name: "kafka", Loader: writer})
	loader := pipeline.NewMultiLoader(metrics, sinks...)

	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize, cfg.GridConcurrency)

	var profiles httpadapter.ProfileGetter
	if store != nil {
		profiles = store
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, profiles, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start gridding pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func binPolicy(cfg *config.Config) domain.BinPolicy {
	if !cfg.GridMandatoryLevels {
		return domain.FixedWidth{Width: cfg.GridBinWidth}
	}
	if len(cfg.GridLevels) == 0 {
		return domain.MandatoryLevels{Levels: domain.StandardPressureLevels}
	}
	return domain.MandatoryLevels{Levels: cfg.GridLevels}
}
