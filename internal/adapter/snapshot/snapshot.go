// Package snapshot archives gridded radar products as zstd-compressed
// msgpack objects, one file per station volume.
package snapshot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/grid"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is one aggregated volume with its per-level error estimates.
// Error slices are indexed like the grid variables; invalid cells hold NaN.
type Snapshot struct {
	Station           string       `msgpack:"station"`
	Time              time.Time    `msgpack:"time"`
	Policy            string       `msgpack:"policy"`
	Grid              *grid.Result `msgpack:"grid"`
	ReflectivityError []float64    `msgpack:"dbz_err"`
	VelocityError     []float64    `msgpack:"vel_err"`
}

// Writer stores snapshots under a directory. Store is safe for concurrent
// use; at most n encodes run at once.
type Writer struct {
	dir      string
	encoders chan *zstd.Encoder
}

// NewWriter creates dir if needed and prepares n encoders.
func NewWriter(dir string, n int) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	n = max(n, 1)
	w := &Writer{dir: dir, encoders: make(chan *zstd.Encoder, n)}
	for range n {
		ze, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression), zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		w.encoders <- ze
	}
	return w, nil
}

// Name is the file name of a snapshot, e.g. COR_20170608000002.msgpack.zst.
func Name(station string, t time.Time) string {
	return fmt.Sprintf("%s_%s.msgpack.zst", station, t.UTC().Format("20060102150405"))
}

// Store writes s and returns the path and the compressed size.
func (w *Writer) Store(s *Snapshot) (string, int64, error) {
	path := filepath.Join(w.dir, Name(s.Station, s.Time))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("create snapshot: %w", err)
	}

	n, err := w.encode(f, s)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return path, n, nil
}

func (w *Writer) encode(dst io.Writer, s *Snapshot) (int64, error) {
	cw := &countingWriter{w: dst}

	zw := <-w.encoders
	defer func() { w.encoders <- zw }()
	zw.Reset(cw)

	if err := msgpack.NewEncoder(zw).Encode(s); err != nil {
		return 0, err
	} else if err := zw.Close(); err != nil {
		return 0, err
	}
	return cw.n, nil
}

// Close releases the pooled encoders.
func (w *Writer) Close() {
	close(w.encoders)
	for ze := range w.encoders {
		ze.Close()
	}
}

// Load reads a snapshot written by Store.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer zr.Close()

	var s Snapshot
	if err := msgpack.NewDecoder(zr).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return &s, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
