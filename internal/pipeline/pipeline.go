package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/couchcryptid/wrf-obsprep/internal/obs"
	"github.com/couchcryptid/wrf-obsprep/internal/observability"
	"github.com/google/uuid"
)

// Notifier publishes the summary of a finished run.
type Notifier interface {
	Notify(ctx context.Context, s *domain.RunSummary) error
}

// Stages selects what a run does. A nil Radar skips the radar stage; an
// empty Surface skips the LITTLE_R stage.
type Stages struct {
	Radar    *RadarStage
	Surface  []obs.Adapter
	Notifier Notifier
}

// Pipeline runs one observation preparation for one analysis window.
type Pipeline struct {
	window    domain.AnalysisWindow
	outputDir string
	stages    Stages
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool

	mu      sync.Mutex
	summary *domain.RunSummary
}

// New creates a Pipeline writing its outputs under outputDir.
func New(w domain.AnalysisWindow, outputDir string, stages Stages, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		window:    w,
		outputDir: outputDir,
		stages:    stages,
		logger:    logger,
		metrics:   metrics,
		summary:   domain.NewRunSummary("", w),
	}
}

// CheckReadiness returns nil once the first stage of the run has finished,
// or an error describing why the run is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no preparation stage has finished yet")
	}
	return nil
}

// Status returns a copy of the in-progress run summary.
func (p *Pipeline) Status() domain.RunSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := *p.summary
	s.Radar.Failed = maps.Clone(s.Radar.Failed)
	s.Stations = maps.Clone(s.Stations)
	s.ValidFields = maps.Clone(s.ValidFields)
	s.Outputs = slices.Clone(s.Outputs)
	return s
}

// Run executes the enabled stages in order: radar, then surface. Per-file
// and per-station failures are logged and counted; only cancellation and
// output-file errors abort the run.
func (p *Pipeline) Run(ctx context.Context) (*domain.RunSummary, error) {
	p.mu.Lock()
	p.summary = domain.NewRunSummary(uuid.NewString(), p.window)
	id := p.summary.ID
	p.mu.Unlock()

	logger := p.logger.With("run_id", id)
	logger.Info("run started",
		"analysis_time", p.window.T0,
		"window_start", p.window.Start(),
		"window_end", p.window.End(),
		"radar", p.stages.Radar != nil,
		"surface_adapters", len(p.stages.Surface),
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if p.stages.Radar != nil {
		if err := p.runRadar(ctx, logger); err != nil {
			return nil, err
		}
		p.ready.Store(true)
	}
	if len(p.stages.Surface) > 0 {
		if err := p.runSurface(ctx, logger); err != nil {
			return nil, err
		}
		p.ready.Store(true)
	}

	p.update(func(s *domain.RunSummary) { s.FinishedAt = domain.Now() })
	summary := p.Status()
	logger.Info("run finished",
		"duration", summary.Duration(),
		"radar_selected", summary.Radar.Selected,
		"radar_processed", summary.Radar.Processed,
		"radar_failed", summary.Radar.Failed,
		"stations", summary.Stations,
		"outputs", summary.Outputs,
	)

	if p.stages.Notifier != nil {
		if err := p.stages.Notifier.Notify(ctx, &summary); err != nil {
			logger.Warn("run summary notification failed", "error", err)
		}
	}
	return &summary, nil
}

func (p *Pipeline) update(fn func(*domain.RunSummary)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.summary)
}

func (p *Pipeline) recordStations(kind obs.Kind, stations, fields int) {
	p.update(func(s *domain.RunSummary) {
		s.Stations[string(kind)] += stations
		s.ValidFields[string(kind)] += fields
	})
	p.metrics.StationsWritten.WithLabelValues(string(kind)).Add(float64(stations))
	p.metrics.ValidFieldsWritten.WithLabelValues(string(kind)).Add(float64(fields))
}
