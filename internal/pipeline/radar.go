package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/adapter/archive"
	"github.com/couchcryptid/wrf-obsprep/internal/adapter/snapshot"
	"github.com/couchcryptid/wrf-obsprep/internal/catalog"
	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/couchcryptid/wrf-obsprep/internal/grid"
	"github.com/couchcryptid/wrf-obsprep/internal/littler"
	"github.com/couchcryptid/wrf-obsprep/internal/obs"
)

// Failure stages of a radar volume.
const (
	StageFetch   = "fetch"
	StageDecode  = "decode"
	StageProject = "project"
	StageGrid    = "grid"
	StageEncode  = "encode"
)

// RadarFileName is the WRFDA radar observation file for a window.
func RadarFileName(w domain.AnalysisWindow) string { return "ob.radar." + w.Stamp() }

// VolumeFetcher makes selected archive entries available locally.
type VolumeFetcher interface {
	FetchAll(ctx context.Context, entries []catalog.Entry) ([]archive.Fetched, error)
}

// VolumeDecoder reads a radar volume file.
type VolumeDecoder interface {
	Decode(path string) (*domain.RadarVolume, error)
}

// VolumeProjector cleans and georeferences a volume.
type VolumeProjector interface {
	Project(v *domain.RadarVolume) (*domain.SampleStack, error)
}

// SnapshotStore archives gridded products.
type SnapshotStore interface {
	Store(s *snapshot.Snapshot) (string, int64, error)
}

// RadarStage wires the collaborators of the radar stage. Snapshots may be nil.
type RadarStage struct {
	Lister    catalog.Lister
	Parser    *catalog.NameParser
	Fetcher   VolumeFetcher
	Decoder   VolumeDecoder
	Projector VolumeProjector
	Estimator grid.Estimator
	Snapshots SnapshotStore
}

// stageError tags a per-volume failure with the stage that raised it.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func (p *Pipeline) runRadar(ctx context.Context, logger *slog.Logger) error {
	rs := p.stages.Radar
	start := time.Now()
	defer func() { p.metrics.StageDuration.WithLabelValues("radar").Observe(time.Since(start).Seconds()) }()

	logger.Info("radar stage started")
	out, err := littler.CreateRadarFile(filepath.Join(p.outputDir, RadarFileName(p.window)))
	if err != nil {
		return err
	}

	written, err := p.radarVolumes(ctx, logger, rs, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("finalize radar file: %w", cerr)
	}
	if err != nil {
		return err
	}

	p.update(func(s *domain.RunSummary) { s.Outputs = append(s.Outputs, out.Path()) })
	logger.Info("radar stage finished", "stations", written, "path", out.Path())
	return nil
}

func (p *Pipeline) radarVolumes(ctx context.Context, logger *slog.Logger, rs *RadarStage, out *littler.RadarFile) (int, error) {
	entries, err := catalog.Collect(ctx, rs.Lister, rs.Parser, p.window, logger)
	if err != nil {
		return 0, err
	}
	selections := catalog.Select(entries, p.window.T0)

	var selected []catalog.Entry
	for _, sel := range selections {
		logger.Debug("radar volume selected", "station", sel.Station, "nearest", sel.Nearest.Name,
			"previous", sel.Previous != nil, "next", sel.Next != nil)
		selected = append(selected, sel.Entries()...)
	}
	p.update(func(s *domain.RunSummary) {
		s.Radar.Listed = len(entries)
		s.Radar.Selected = len(selected)
	})
	p.metrics.RadarFilesSelected.Add(float64(len(selected)))

	if len(selected) == 0 {
		logger.Warn("no radar volumes inside the analysis window", "listed", len(entries))
		return 0, nil
	}

	fetched, err := rs.Fetcher.FetchAll(ctx, selected)
	if err != nil {
		return 0, err
	}
	if missing := len(selected) - len(fetched); missing > 0 {
		p.recordRadarFailure(StageFetch, missing)
	}
	p.update(func(s *domain.RunSummary) { s.Radar.Fetched = len(fetched) })

	written := 0
	for _, f := range fetched {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if err := p.radarVolume(logger, rs, out, f); err != nil {
			var se *stageError
			stage := StageEncode
			if errors.As(err, &se) {
				stage = se.stage
			}
			logger.Warn("radar volume failed, skipping", "file", f.Entry.Name, "stage", stage, "error", err)
			p.recordRadarFailure(stage, 1)
			continue
		}
		written++
	}
	return written, nil
}

func (p *Pipeline) radarVolume(logger *slog.Logger, rs *RadarStage, out *littler.RadarFile, f archive.Fetched) error {
	v, err := rs.Decoder.Decode(f.Path)
	if err != nil {
		return &stageError{StageDecode, err}
	}
	stack, err := rs.Projector.Project(v)
	if err != nil {
		return &stageError{StageProject, err}
	}
	res, err := grid.Aggregate(stack)
	if err != nil {
		return &stageError{StageGrid, err}
	}

	st, dbzErr, velErr := RadarStation(v, res, rs.Estimator)
	fields, err := out.Write(st)
	if err != nil {
		return &stageError{StageEncode, err}
	}

	cells := len(st.Cells)
	p.update(func(s *domain.RunSummary) {
		s.Radar.Processed++
		s.Radar.Cells += cells
	})
	p.metrics.RadarFilesProcessed.Inc()
	p.metrics.GridCellsWritten.Add(float64(cells))
	p.recordStations(obs.KindRadar, 1, fields)
	logger.Info("radar volume written", "file", f.Entry.Name, "station", v.Station,
		"grid", fmt.Sprintf("%dx%dx%d", res.NX, res.NY, res.NL), "cells", cells)

	if rs.Snapshots != nil {
		path, size, err := rs.Snapshots.Store(&snapshot.Snapshot{
			Station:           v.Station,
			Time:              v.IngestTime,
			Policy:            string(rs.Estimator.Policy),
			Grid:              res,
			ReflectivityError: dbzErr,
			VelocityError:     velErr,
		})
		if err != nil {
			logger.Warn("grid snapshot failed", "file", f.Entry.Name, "error", err)
		} else {
			p.update(func(s *domain.RunSummary) { s.Radar.Snapshots++ })
			logger.Debug("grid snapshot stored", "path", path, "bytes", size)
		}
	}
	return nil
}

func (p *Pipeline) recordRadarFailure(stage string, n int) {
	p.update(func(s *domain.RunSummary) { s.Radar.Failed[stage] += n })
	p.metrics.RadarFilesFailed.WithLabelValues(stage).Add(float64(n))
}

// RadarStation converts a gridded volume into a radar text station. Cells
// are visited longitude-major; a cell carries only its jointly valid levels.
// The returned slices hold the estimated errors on the grid layout, NaN where
// the cell level is not valid.
func RadarStation(v *domain.RadarVolume, res *grid.Result, est grid.Estimator) (littler.RadarStation, []float64, []float64) {
	st := littler.RadarStation{
		Name:      v.Station,
		Longitude: v.Longitude,
		Latitude:  v.Latitude,
		Elevation: v.Height,
		Date:      v.IngestTime,
		Sweeps:    res.NL,
	}
	dbzErr := make([]float64, len(res.Reflectivity))
	velErr := make([]float64, len(res.Velocity))
	for n := range dbzErr {
		dbzErr[n], velErr[n] = math.NaN(), math.NaN()
	}

	for i := range res.NX {
		for j := range res.NY {
			var levels []littler.RadarLevel
			for k := range res.NL {
				if !res.Valid(i, j, k) {
					continue
				}
				n := res.Index(i, j, k)
				dbzErr[n] = est.Reflectivity(res, i, j, k)
				velErr[n] = est.Velocity(res, i, j, k)
				levels = append(levels, littler.RadarLevel{
					Height:            res.Alt[n],
					Velocity:          res.Velocity[n],
					VelocityError:     velErr[n],
					Reflectivity:      res.Reflectivity[n],
					ReflectivityError: dbzErr[n],
				})
			}
			if len(levels) == 0 {
				continue
			}
			st.Cells = append(st.Cells, littler.RadarCell{
				Latitude:  res.Lat[j],
				Longitude: res.Lon[i],
				Levels:    levels,
			})
		}
	}
	return st, dbzErr, velErr
}
