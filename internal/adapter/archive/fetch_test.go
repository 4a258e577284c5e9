package archive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/catalog"
	"github.com/couchcryptid/wrf-obsprep/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySource fails each ref a configured number of times before succeeding.
type flakySource struct {
	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (s *flakySource) List(context.Context, catalog.Bucket) ([]catalog.Listing, error) {
	return nil, nil
}

func (s *flakySource) Fetch(ctx context.Context, ref, dir string) (string, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[ref]++
	if s.calls[ref] <= s.failures[ref] {
		return "", errors.New("connection reset")
	}
	return filepath.Join(dir, ref), nil
}

func newFlaky(failures map[string]int) *flakySource {
	return &flakySource{failures: failures, calls: make(map[string]int)}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func entries(refs ...string) []catalog.Entry {
	out := make([]catalog.Entry, len(refs))
	for i, r := range refs {
		out[i] = catalog.Entry{Name: r, Ref: r}
	}
	return out
}

func TestFetcher_RetriesThenSucceeds(t *testing.T) {
	src := newFlaky(map[string]int{"b.nc": 2})
	metrics := observability.NewMetricsForTesting()
	f := NewFetcher(src, "/raw", 2, 3, 0, discardLogger(), metrics)

	got, err := f.FetchAll(context.Background(), entries("a.nc", "b.nc", "c.nc"))
	require.NoError(t, err)

	require.Len(t, got, 3)
	for i, name := range []string{"a.nc", "b.nc", "c.nc"} {
		assert.Equal(t, name, got[i].Entry.Name)
		assert.Equal(t, filepath.Join("/raw", name), got[i].Path)
	}
	assert.Equal(t, 3, src.calls["b.nc"])
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.DownloadAttempts.WithLabelValues("success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.DownloadAttempts.WithLabelValues("retry")), 0)
}

func TestFetcher_ExhaustedAttemptsSkipped(t *testing.T) {
	src := newFlaky(map[string]int{"b.nc": 5})
	metrics := observability.NewMetricsForTesting()
	f := NewFetcher(src, "/raw", 1, 3, time.Millisecond, discardLogger(), metrics)

	got, err := f.FetchAll(context.Background(), entries("a.nc", "b.nc", "c.nc"))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "a.nc", got[0].Entry.Name)
	assert.Equal(t, "c.nc", got[1].Entry.Name)
	assert.Equal(t, 3, src.calls["b.nc"])
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.DownloadAttempts.WithLabelValues("exhausted")), 0)
}

func TestFetcher_WorkerLimit(t *testing.T) {
	src := newFlaky(nil)
	src.delay = 20 * time.Millisecond
	f := NewFetcher(src, "/raw", 2, 1, 0, discardLogger(), observability.NewMetricsForTesting())

	got, err := f.FetchAll(context.Background(), entries("a", "b", "c", "d", "e", "f"))
	require.NoError(t, err)
	assert.Len(t, got, 6)
	assert.LessOrEqual(t, src.peak.Load(), int32(2))
}

func TestFetcher_ContextCancelled(t *testing.T) {
	src := newFlaky(map[string]int{"a.nc": 10})
	f := NewFetcher(src, "/raw", 1, 10, time.Hour, discardLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.FetchAll(ctx, entries("a.nc"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetcher_Empty(t *testing.T) {
	f := NewFetcher(newFlaky(nil), "/raw", 0, 0, 0, discardLogger(), observability.NewMetricsForTesting())
	got, err := f.FetchAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
