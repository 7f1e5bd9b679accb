// Command trend computes the linear precipitation trend over a bounding box
// and date window of a gridded dataset, logs its latitude-weighted mean and
// writes the trend map as a PNG.
//
// With SERVE=true the figure, summary, health and metrics endpoints stay up
// until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/precip-trend/internal/adapter/basemap"
	httpadapter "github.com/couchcryptid/precip-trend/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/precip-trend/internal/adapter/kafka"
	"github.com/couchcryptid/precip-trend/internal/adapter/netcdf"
	"github.com/couchcryptid/precip-trend/internal/adapter/render"
	"github.com/couchcryptid/precip-trend/internal/config"
	"github.com/couchcryptid/precip-trend/internal/observability"
	"github.com/couchcryptid/precip-trend/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	vars := netcdf.Vars{Lon: cfg.LonVar, Lat: cfg.LatVar, Time: cfg.TimeVar, Precip: cfg.PrecipVar}
	loader, err := netcdf.NewLoader(cfg.DatasetFormat, vars, logger)
	if err != nil {
		logger.Error("failed to create loader", "error", err)
		return err
	}

	layers, err := basemap.LoadLayers([]basemap.Source{
		{Name: "coastline", Path: cfg.CoastlinePath},
		{Name: "states", Path: cfg.StatesPath},
	}, cfg.Params.Box, logger)
	if err != nil {
		logger.Error("failed to load basemap", "error", err)
		return err
	}
	renderer := render.New(cfg.FigureWidth, cfg.FigureHeight, layers)

	var publisher pipeline.Publisher
	if cfg.PublishEnabled() {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		logger.Info("summary publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(loader, renderer, publisher, logger, metrics, pipeline.Options{
		Source:   cfg.DatasetPath,
		Variable: cfg.PrecipVar,
		Params:   cfg.Params,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.Serve {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	res, runErr := p.Run(ctx)
	if runErr == nil {
		if err := os.WriteFile(cfg.OutputPath, res.Figure, 0o644); err != nil { //nolint:gosec // figure is meant to be world-readable
			logger.Error("failed to write figure", "path", cfg.OutputPath, "error", err)
			runErr = err
		} else {
			logger.Info("figure written", "path", cfg.OutputPath, "bytes", len(res.Figure))
		}
	}

	if srv != nil {
		logger.Info("serving results", "addr", cfg.HTTPAddr)
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return runErr
}
