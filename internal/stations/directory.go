package stations

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Directory resolves ICAO codes to stations.
type Directory interface {
	Lookup(ctx context.Context, icao string) (Station, error)
}

// FileDirectory scans a directory file on every lookup.
type FileDirectory struct {
	path   string
	logger *slog.Logger
}

// NewFileDirectory reads entries from path.
func NewFileDirectory(path string, logger *slog.Logger) *FileDirectory {
	return &FileDirectory{path: path, logger: logger}
}

func (d *FileDirectory) Lookup(ctx context.Context, icao string) (Station, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return Station{}, fmt.Errorf("open station directory: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	prefix := icao + ";"
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return Station{}, err
		}
		line := sc.Text()
		if !strings.HasPrefix(strings.TrimSpace(line), prefix) {
			continue
		}
		s, err := ParseLine(line)
		if err != nil {
			d.logger.Warn("malformed station entry", "icao", icao, "error", err)
			return Station{}, err
		}
		return s, nil
	}
	if err := sc.Err(); err != nil {
		return Station{}, fmt.Errorf("read station directory: %w", err)
	}
	return Station{}, fmt.Errorf("%w: %s", ErrNotFound, icao)
}

// CachedDirectory wraps a Directory with an expiring LRU cache. Only
// successful lookups are cached.
type CachedDirectory struct {
	inner Directory
	cache *expirable.LRU[string, Station]
}

// NewCachedDirectory creates a cache decorator around a directory.
func NewCachedDirectory(inner Directory, size int, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		inner: inner,
		cache: expirable.NewLRU[string, Station](size, nil, ttl),
	}
}

func (c *CachedDirectory) Lookup(ctx context.Context, icao string) (Station, error) {
	if s, ok := c.cache.Get(icao); ok {
		return s, nil
	}
	s, err := c.inner.Lookup(ctx, icao)
	if err != nil {
		return s, err
	}
	c.cache.Add(icao, s)
	return s, nil
}
