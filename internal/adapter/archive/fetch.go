package archive

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/catalog"
	"github.com/couchcryptid/wrf-obsprep/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Fetched is a selected archive entry available on local disk.
type Fetched struct {
	Entry catalog.Entry
	Path  string
}

// Fetcher downloads archive entries with a bounded worker pool. Each entry
// gets a fixed number of attempts separated by a constant wait.
type Fetcher struct {
	source   Source
	dir      string
	workers  int
	attempts int
	wait     time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewFetcher creates a Fetcher writing into dir.
func NewFetcher(source Source, dir string, workers, attempts int, wait time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	return &Fetcher{
		source:   source,
		dir:      dir,
		workers:  max(workers, 1),
		attempts: max(attempts, 1),
		wait:     wait,
		logger:   logger,
		metrics:  metrics,
	}
}

// FetchAll downloads entries concurrently and returns the successful ones in
// input order. An entry that exhausts its attempts is logged and left out.
// Only context cancellation is returned as an error.
func (f *Fetcher) FetchAll(ctx context.Context, entries []catalog.Entry) ([]Fetched, error) {
	paths := make([]string, len(entries))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(f.workers)
	for i, e := range entries {
		eg.Go(func() error {
			path, ok := f.fetch(ctx, e)
			if ok {
				paths[i] = path
			}
			return ctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make([]Fetched, 0, len(entries))
	for i, e := range entries {
		if paths[i] != "" {
			out = append(out, Fetched{Entry: e, Path: paths[i]})
		}
	}
	return out, nil
}

func (f *Fetcher) fetch(ctx context.Context, e catalog.Entry) (string, bool) {
	for attempt := 1; attempt <= f.attempts; attempt++ {
		path, err := f.source.Fetch(ctx, e.Ref, f.dir)
		if err == nil {
			f.metrics.DownloadAttempts.WithLabelValues("success").Inc()
			f.logger.Debug("radar file fetched", "file", e.Name, "path", path, "attempt", attempt)
			return path, true
		}
		if ctx.Err() != nil {
			return "", false
		}
		if attempt == f.attempts {
			f.metrics.DownloadAttempts.WithLabelValues("exhausted").Inc()
			f.logger.Warn("radar file fetch failed, skipping", "file", e.Name, "stage", "fetch", "attempts", attempt, "error", err)
			return "", false
		}
		f.metrics.DownloadAttempts.WithLabelValues("retry").Inc()
		f.logger.Info("radar file fetch failed, retrying", "file", e.Name, "attempt", attempt, "wait", f.wait, "error", err)
		if !sleepWithContext(ctx, f.wait) {
			return "", false
		}
	}
	return "", false
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
