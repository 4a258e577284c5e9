package catalog

import (
	"fmt"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
)

// Bucket is one julian-day directory of the radar archive.
type Bucket struct {
	Year int
	Day  int // 1..366
}

// BucketOf returns the bucket holding t.
func BucketOf(t time.Time) Bucket {
	t = t.UTC()
	return Bucket{Year: t.Year(), Day: t.YearDay()}
}

// Path is the archive-relative directory, e.g. "2017/159".
func (b Bucket) Path() string {
	return fmt.Sprintf("%04d/%03d", b.Year, b.Day)
}

// Buckets returns every distinct day touched by the window, oldest first.
// A window crossing midnight yields two buckets, possibly in different years.
func Buckets(w domain.AnalysisWindow) []Bucket {
	start := w.Start().UTC()
	end := w.End().UTC()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	var out []Bucket
	for !day.After(end) {
		out = append(out, BucketOf(day))
		day = day.AddDate(0, 0, 1)
	}
	return out
}
