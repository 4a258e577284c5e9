// Command obsprep prepares the radar and conventional observations of one
// analysis window for WRFDA. Settings come from the environment; see
// internal/config.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/couchcryptid/wrf-obsprep/internal/adapter/archive"
	"github.com/couchcryptid/wrf-obsprep/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/wrf-obsprep/internal/adapter/kafka"
	"github.com/couchcryptid/wrf-obsprep/internal/adapter/netcdf"
	"github.com/couchcryptid/wrf-obsprep/internal/adapter/snapshot"
	"github.com/couchcryptid/wrf-obsprep/internal/catalog"
	"github.com/couchcryptid/wrf-obsprep/internal/config"
	"github.com/couchcryptid/wrf-obsprep/internal/grid"
	"github.com/couchcryptid/wrf-obsprep/internal/obs"
	"github.com/couchcryptid/wrf-obsprep/internal/observability"
	"github.com/couchcryptid/wrf-obsprep/internal/pipeline"
	"github.com/couchcryptid/wrf-obsprep/internal/radar"
	"github.com/couchcryptid/wrf-obsprep/internal/stations"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Error("close error", "error", err)
			}
		}
	}()

	stages := pipeline.Stages{Surface: surfaceAdapters(cfg, logger)}

	if cfg.Obs.Radar {
		rs, closer, err := radarStage(ctx, cfg, logger, metrics)
		if closer != nil {
			closers = append(closers, closer)
		}
		if err != nil {
			logger.Error("failed to set up radar stage", "error", err)
			return 1
		}
		stages.Radar = rs
	}

	if len(cfg.KafkaBrokers) > 0 {
		notifier := kafkaadapter.NewNotifier(cfg, logger)
		closers = append(closers, notifier)
		stages.Notifier = notifier
		logger.Info("run notifications enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(cfg.Window(), cfg.OutputDir, stages, logger, metrics)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	code := 0
	if _, err := p.Run(ctx); err != nil {
		logger.Error("run failed", "error", err)
		code = 1
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	return code
}

// surfaceAdapters builds the enabled LITTLE_R adapters. Inputs live under
// DATA_DIR in one directory per observation type.
func surfaceAdapters(cfg *config.Config, logger *slog.Logger) []obs.Adapter {
	directory := stations.NewCachedDirectory(
		stations.NewFileDirectory(cfg.StationDirectory, logger),
		cfg.StationCacheSize, cfg.StationCacheTTL,
	)
	dir := func(kind obs.Kind) string { return filepath.Join(cfg.DataDir, string(kind)) }

	var adapters []obs.Adapter
	if cfg.Obs.METAR {
		adapters = append(adapters, obs.NewMETAR(dir(obs.KindMETAR), directory, logger))
	}
	if cfg.Obs.Sound {
		adapters = append(adapters, obs.NewSounding(dir(obs.KindSound), logger))
	}
	if cfg.Obs.Synop {
		adapters = append(adapters, obs.NewSynop(dir(obs.KindSynop), obs.NewMetaf2XML(cfg.SynopDecoder), logger))
	}
	if cfg.Obs.Radiom {
		adapters = append(adapters, obs.NewRadiometer(dir(obs.KindRadiom), directory, logger))
	}
	return adapters
}

// radarStage wires the archive source and the volume processors. The
// returned closer, when not nil, releases the source or snapshot writer.
func radarStage(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*pipeline.RadarStage, io.Closer, error) {
	src, err := archive.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	parser, err := catalog.NewNameParser(cfg.RadarFilePattern)
	if err != nil {
		return nil, nil, err
	}

	var closers multiCloser
	if c, ok := src.(io.Closer); ok {
		closers = append(closers, c)
	}

	radarDir := filepath.Join(cfg.DataDir, string(obs.KindRadar))
	rs := &pipeline.RadarStage{
		Lister:    src,
		Parser:    parser,
		Fetcher:   archive.NewFetcher(src, filepath.Join(radarDir, "raw"), cfg.DownloadWorkers, cfg.DownloadAttempts, cfg.DownloadRetryWait, logger, metrics),
		Decoder:   netcdf.NewDecoder(filepath.Join(radarDir, "scratch")),
		Projector: radar.NewDefaultProjector(),
		Estimator: grid.Estimator{Policy: cfg.NeighborPolicy},
	}

	if cfg.SnapshotDir != "" {
		w, err := snapshot.NewWriter(cfg.SnapshotDir, 1)
		if err != nil {
			return nil, closers.orNil(), err
		}
		closers = append(closers, closerFunc(func() error { w.Close(); return nil }))
		rs.Snapshots = w
		logger.Info("grid snapshots enabled", "dir", cfg.SnapshotDir)
	}

	logger.Info("radar stage configured",
		"source", cfg.RadarSource,
		"workers", cfg.DownloadWorkers,
		"attempts", cfg.DownloadAttempts,
		"neighbor_policy", cfg.NeighborPolicy,
	)
	return rs, closers.orNil(), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (m multiCloser) orNil() io.Closer {
	if len(m) == 0 {
		return nil
	}
	return m
}
