// Package archive reads the radar volume archive. The archive is organized
// in julian-day directories (<root>/<YYYY>/<DDD>/) and may live on a local
// disk, behind an HTTP index page, or in an S3 or GCS bucket.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/couchcryptid/wrf-obsprep/internal/catalog"
	"github.com/couchcryptid/wrf-obsprep/internal/config"
	"google.golang.org/api/option"
)

// Source lists archive buckets and fetches individual files.
type Source interface {
	catalog.Lister
	// Fetch makes the file behind ref available under dir and returns its
	// local path.
	Fetch(ctx context.Context, ref, dir string) (string, error)
}

// New builds the source selected by RADAR_SOURCE.
func New(ctx context.Context, cfg *config.Config) (Source, error) {
	switch cfg.RadarSource {
	case config.SourceLocal:
		return NewLocal(cfg.RadarSourceURL), nil
	case config.SourceHTTP:
		return NewHTTPIndex(cfg.RadarSourceURL, nil), nil
	case config.SourceS3:
		return NewS3(ctx, cfg.RadarBucket, cfg.RadarPrefix, cfg.RadarRegion)
	case config.SourceGCS:
		return NewGCS(ctx, cfg.RadarBucket, cfg.RadarPrefix, option.WithoutAuthentication())
	default:
		return nil, fmt.Errorf("unknown radar source %q", cfg.RadarSource)
	}
}

// save streams r into a temporary file under dir and renames it to name
// once the copy completes.
func save(dir, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("download %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close download file: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move download into place: %w", err)
	}
	return path, nil
}
