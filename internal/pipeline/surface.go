package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/couchcryptid/wrf-obsprep/internal/littler"
	"github.com/couchcryptid/wrf-obsprep/internal/obs"
)

// ObsFileName is the merged LITTLE_R file for a window.
func ObsFileName(w domain.AnalysisWindow) string { return "obs." + w.Stamp() }

// runSurface writes every adapter's stations into one LITTLE_R file, one
// section per observation type in [obs.Kinds] order.
func (p *Pipeline) runSurface(ctx context.Context, logger *slog.Logger) error {
	start := time.Now()
	defer func() { p.metrics.StageDuration.WithLabelValues("surface").Observe(time.Since(start).Seconds()) }()

	logger.Info("surface stage started", "adapters", len(p.stages.Surface))
	out, err := littler.CreateObsFile(filepath.Join(p.outputDir, ObsFileName(p.window)))
	if err != nil {
		return err
	}

	err = p.surfaceSections(ctx, logger, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close observation file: %w", cerr)
	}
	if err != nil {
		return err
	}

	p.update(func(s *domain.RunSummary) { s.Outputs = append(s.Outputs, out.Path()) })
	logger.Info("surface stage finished", "stations", out.Stations(), "valid_fields", out.Fields(), "path", out.Path())
	return nil
}

func (p *Pipeline) surfaceSections(ctx context.Context, logger *slog.Logger, out *littler.ObsFile) error {
	for _, a := range orderedAdapters(p.stages.Surface) {
		if err := ctx.Err(); err != nil {
			return err
		}
		kind := a.Kind()
		stations, err := a.Stations(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("observation adapter failed, skipping section", "type", kind, "stage", "surface", "error", err)
		}

		fields := 0
		for _, st := range stations {
			n, err := out.Write(st)
			if err != nil {
				return fmt.Errorf("write %s station %s: %w", kind, st.Header.ID, err)
			}
			fields += n
		}
		if err := out.EndSection(); err != nil {
			return fmt.Errorf("end %s section: %w", kind, err)
		}
		p.recordStations(kind, len(stations), fields)
		logger.Info("observation section written", "type", kind, "stations", len(stations), "valid_fields", fields)
	}
	return nil
}

// orderedAdapters sorts adapters by their position in [obs.Kinds]. Unknown
// kinds go last in their given order.
func orderedAdapters(adapters []obs.Adapter) []obs.Adapter {
	out := slices.Clone(adapters)
	rank := func(a obs.Adapter) int {
		if i := slices.Index(obs.Kinds, a.Kind()); i >= 0 {
			return i
		}
		return len(obs.Kinds)
	}
	slices.SortStableFunc(out, func(a, b obs.Adapter) int { return rank(a) - rank(b) })
	return out
}
