package catalog

import (
	"context"
	"log/slog"
	"sort"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
)

// Lister enumerates the files of one archive bucket.
type Lister interface {
	List(ctx context.Context, b Bucket) ([]Listing, error)
}

// Collect lists every bucket of the window, merges the listings, sorts them
// by filename and keeps the entries strictly inside the window. A failing
// bucket is logged and skipped. Only context cancellation is returned as an
// error.
func Collect(ctx context.Context, lister Lister, parser *NameParser, w domain.AnalysisWindow, logger *slog.Logger) ([]Entry, error) {
	seen := make(map[string]bool)
	var entries []Entry

	for _, b := range Buckets(w) {
		listings, err := lister.List(ctx, b)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("archive listing failed, skipping bucket", "bucket", b.Path(), "error", err)
			continue
		}
		logger.Debug("archive bucket listed", "bucket", b.Path(), "files", len(listings))

		for _, l := range listings {
			if seen[l.Name] {
				continue
			}
			e, err := parser.Parse(l)
			if err != nil {
				logger.Debug("ignoring archive entry", "name", l.Name, "error", err)
				continue
			}
			seen[l.Name] = true
			if !w.Contains(e.Time) {
				continue
			}
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
