// Package netcdf decodes CfRadial radar volumes stored as NetCDF files,
// optionally zstd-compressed.
package netcdf

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	gonetcdf "github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/klauspost/compress/zstd"
)

// ErrDecode marks an input that is not a readable radar volume.
var ErrDecode = errors.New("radar decode")

// Decoder reads CfRadial volumes. Compressed inputs are expanded into
// scratch before opening.
type Decoder struct {
	scratch string
}

// NewDecoder creates a Decoder using scratch for decompressed copies. An
// empty scratch means the system temporary directory.
func NewDecoder(scratch string) *Decoder {
	return &Decoder{scratch: scratch}
}

// Decode reads the volume at path. The station id is the first three
// characters of the file name.
func (d *Decoder) Decode(path string) (*domain.RadarVolume, error) {
	name := filepath.Base(path)
	if len(name) < 3 {
		return nil, fmt.Errorf("%w: %s: file name too short for a station id", ErrDecode, name)
	}

	switch {
	case strings.HasSuffix(name, ".nc.zst"):
		plain, err := d.decompress(path)
		if err != nil {
			return nil, err
		}
		defer os.Remove(plain)
		return decodeFile(plain, name[:3])
	case strings.HasSuffix(name, ".nc"):
		return decodeFile(path, name[:3])
	default:
		return nil, fmt.Errorf("%w: %s: unsupported format", ErrDecode, name)
	}
}

func (d *Decoder) decompress(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer in.Close()

	zr, err := zstd.NewReader(in)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	defer zr.Close()

	if d.scratch != "" {
		if err := os.MkdirAll(d.scratch, 0o755); err != nil {
			return "", fmt.Errorf("create scratch dir: %w", err)
		}
	}
	out, err := os.CreateTemp(d.scratch, "cfradial-*.nc")
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := io.Copy(out, zr); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("%w: decompress %s: %w", ErrDecode, path, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("close scratch file: %w", err)
	}
	return out.Name(), nil
}

func decodeFile(path, station string) (*domain.RadarVolume, error) {
	g, err := gonetcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrDecode, path, err)
	}
	defer g.Close()

	c, err := readCfRadial(g)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, filepath.Base(path), err)
	}
	v, err := c.volume(station)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, filepath.Base(path), err)
	}
	return v, nil
}

// cfRadial is the subset of a CfRadial file the projector needs, with
// packing and fill values already resolved.
type cfRadial struct {
	Range      []float64 // gate centers, m
	Azimuth    []float64 // per ray, degrees
	Elevation  []float64 // per ray, degrees
	SweepStart []int
	SweepEnd   []int // inclusive
	Latitude   float64
	Longitude  float64
	Altitude   float64
	Start      time.Time
	DBZ        [][]float64 // (ray, gate)
	VEL        [][]float64
}

func readCfRadial(g api.Group) (cfRadial, error) {
	var c cfRadial
	r := reader{g: g}

	c.Range = r.floats("range")
	c.Azimuth = r.floats("azimuth")
	c.Elevation = r.floats("elevation")
	c.SweepStart = r.ints("sweep_start_ray_index")
	c.SweepEnd = r.ints("sweep_end_ray_index")
	c.Latitude = r.scalar("latitude")
	c.Longitude = r.scalar("longitude")
	c.Altitude = r.scalar("altitude")
	c.DBZ = r.field("DBZ")
	c.VEL = r.field("VEL")
	start := r.text("time_coverage_start")
	if r.err != nil {
		return cfRadial{}, r.err
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(start))
	if err != nil {
		return cfRadial{}, fmt.Errorf("parse time_coverage_start %q: %w", start, err)
	}
	c.Start = t.UTC()
	return c, nil
}

// volume splits the ray-major arrays into sweeps. Each CfRadial ray angle is
// a center, so start and stop are set equal.
func (c cfRadial) volume(station string) (*domain.RadarVolume, error) {
	if len(c.Range) < 2 {
		return nil, fmt.Errorf("range has %d gates", len(c.Range))
	}
	if len(c.SweepStart) != len(c.SweepEnd) {
		return nil, fmt.Errorf("sweep index arrays differ in length: %d and %d", len(c.SweepStart), len(c.SweepEnd))
	}
	rays := len(c.Azimuth)
	if len(c.Elevation) != rays || len(c.DBZ) != rays || len(c.VEL) != rays {
		return nil, fmt.Errorf("ray dimension mismatch: azimuth %d, elevation %d, DBZ %d, VEL %d",
			rays, len(c.Elevation), len(c.DBZ), len(c.VEL))
	}

	step := c.Range[1] - c.Range[0]
	first := c.Range[0] - step/2
	last := c.Range[len(c.Range)-1] + step/2

	v := &domain.RadarVolume{
		Station:    station,
		Latitude:   c.Latitude,
		Longitude:  c.Longitude,
		Height:     c.Altitude,
		IngestTime: c.Start,
	}
	for s := range c.SweepStart {
		lo, hi := c.SweepStart[s], c.SweepEnd[s]
		if lo < 0 || hi < lo || hi >= rays {
			return nil, fmt.Errorf("sweep %d ray range [%d, %d] outside %d rays", s+1, lo, hi, rays)
		}
		sweep := domain.Sweep{FirstBin: first, LastBin: last, BinStep: step}
		for i := lo; i <= hi; i++ {
			sweep.Rays = append(sweep.Rays, domain.Ray{
				AzimuthStart:   c.Azimuth[i],
				AzimuthStop:    c.Azimuth[i],
				ElevationStart: c.Elevation[i],
				ElevationStop:  c.Elevation[i],
				Reflectivity:   c.DBZ[i],
				Velocity:       c.VEL[i],
			})
		}
		v.Sweeps = append(v.Sweeps, sweep)
	}
	return v, nil
}

// reader records the first failure so a sequence of reads can be checked once.
type reader struct {
	g   api.Group
	err error
}

func (r *reader) variable(name string) *api.Variable {
	if r.err != nil {
		return nil
	}
	v, err := r.g.GetVariable(name)
	if err != nil {
		r.err = fmt.Errorf("read variable %s: %w", name, err)
		return nil
	}
	return v
}

func (r *reader) floats(name string) []float64 {
	v := r.variable(name)
	if v == nil {
		return nil
	}
	out, err := flatten(v.Values)
	if err != nil {
		r.err = fmt.Errorf("variable %s: %w", name, err)
		return nil
	}
	return out
}

func (r *reader) ints(name string) []int {
	f := r.floats(name)
	out := make([]int, len(f))
	for i, x := range f {
		out[i] = int(x)
	}
	return out
}

func (r *reader) scalar(name string) float64 {
	f := r.floats(name)
	if r.err != nil {
		return math.NaN()
	}
	if len(f) == 0 {
		r.err = fmt.Errorf("variable %s is empty", name)
		return math.NaN()
	}
	return f[0]
}

func (r *reader) text(name string) string {
	v := r.variable(name)
	if v == nil {
		return ""
	}
	switch s := v.Values.(type) {
	case string:
		return s
	case []string:
		return strings.Join(s, "")
	case []byte:
		return string(s)
	default:
		r.err = fmt.Errorf("variable %s: unexpected %T, want text", name, v.Values)
		return ""
	}
}

func (r *reader) field(name string) [][]float64 {
	v := r.variable(name)
	if v == nil {
		return nil
	}
	rows, err := matrix(v.Values)
	if err != nil {
		r.err = fmt.Errorf("variable %s: %w", name, err)
		return nil
	}
	p := packingOf(v.Attributes)
	for _, row := range rows {
		for i, x := range row {
			row[i] = p.unpack(x)
		}
	}
	return rows
}
