package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/wrf-obsprep/internal/catalog"
)

// Local is an archive mounted on the local filesystem.
type Local struct {
	root string
}

// NewLocal creates a source rooted at root.
func NewLocal(root string) *Local {
	return &Local{root: root}
}

// List returns the regular files of the bucket directory.
func (l *Local) List(_ context.Context, b catalog.Bucket) ([]catalog.Listing, error) {
	dir := filepath.Join(l.root, filepath.FromSlash(b.Path()))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var out []catalog.Listing
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, catalog.Listing{Name: e.Name(), Ref: filepath.Join(dir, e.Name())})
	}
	return out, nil
}

// Fetch returns the archive path itself; nothing is copied.
func (l *Local) Fetch(_ context.Context, ref, _ string) (string, error) {
	if _, err := os.Stat(ref); err != nil {
		return "", fmt.Errorf("fetch %s: %w", ref, err)
	}
	return ref, nil
}
