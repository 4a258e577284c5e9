package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/dhconnelly/rtreego"
)

const (
	// CellSizeKm is the model grid resolution.
	CellSizeKm = 9.0
	// KmPerDegree converts kilometers to degrees of latitude.
	KmPerDegree = 111.325
)

// ErrDegenerateDomain means the samples span less than one grid cell.
var ErrDegenerateDomain = errors.New("degenerate grid domain")

// Result is the gridded product of one volume, indexed (lon, lat, level).
type Result struct {
	NX, NY, NL int

	LonEdges []float64
	LatEdges []float64
	Lon      []float64 // cell centers, NX
	Lat      []float64 // cell centers, NY

	Alt          []float64
	Reflectivity []float64
	Velocity     []float64

	AltValid          []bool
	ReflectivityValid []bool
	VelocityValid     []bool
}

func newResult(lonEdges, latEdges []float64, levels int) *Result {
	nx, ny := len(lonEdges)-1, len(latEdges)-1
	n := nx * ny * levels
	return &Result{
		NX:                nx,
		NY:                ny,
		NL:                levels,
		LonEdges:          lonEdges,
		LatEdges:          latEdges,
		Lon:               centers(lonEdges),
		Lat:               centers(latEdges),
		Alt:               make([]float64, n),
		Reflectivity:      make([]float64, n),
		Velocity:          make([]float64, n),
		AltValid:          make([]bool, n),
		ReflectivityValid: make([]bool, n),
		VelocityValid:     make([]bool, n),
	}
}

// Index returns the flat offset of cell (i, j) at level k.
func (r *Result) Index(i, j, k int) int {
	return (i*r.NY+j)*r.NL + k
}

// Valid reports whether both physical variables are present at (i, j, k).
func (r *Result) Valid(i, j, k int) bool {
	n := r.Index(i, j, k)
	return r.ReflectivityValid[n] && r.VelocityValid[n]
}

// CountLevels is the number of levels of cell (i, j) where reflectivity and
// velocity are simultaneously valid.
func (r *Result) CountLevels(i, j int) int {
	count := 0
	for k := range r.NL {
		if r.Valid(i, j, k) {
			count++
		}
	}
	return count
}

// CountCells is the number of cells with at least one valid level.
func (r *Result) CountCells() int {
	count := 0
	for i := range r.NX {
		for j := range r.NY {
			if r.CountLevels(i, j) > 0 {
				count++
			}
		}
	}
	return count
}

// CellSize returns the grid step in degrees for a domain spanning
// [latMin, latMax].
func CellSize(latMin, latMax float64) (dlon, dlat float64) {
	meanLat := (latMin + latMax) / 2 * math.Pi / 180
	dlat = CellSizeKm / KmPerDegree
	dlon = dlat / math.Cos(meanLat)
	return dlon, dlat
}

// Edges returns min, min+step, ... up to but excluding max.
func Edges(minimum, maximum, step float64) []float64 {
	n := int(math.Ceil((maximum - minimum) / step))
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = minimum + float64(i)*step
	}
	return out
}

func centers(edges []float64) []float64 {
	out := make([]float64, len(edges)-1)
	for i := range out {
		out[i] = (edges[i] + edges[i+1]) / 2
	}
	return out
}

// Aggregate bins s onto the 9 km grid covering its level-averaged
// horizontal extent.
func Aggregate(s *domain.SampleStack) (*Result, error) {
	lonMin, lonMax, latMin, latMax, err := extent(s)
	if err != nil {
		return nil, err
	}

	dlon, dlat := CellSize(latMin, latMax)
	lonEdges := Edges(lonMin, lonMax, dlon)
	latEdges := Edges(latMin, latMax, dlat)
	if len(lonEdges) < 2 || len(latEdges) < 2 {
		return nil, fmt.Errorf("%w: %d x %d edges", ErrDegenerateDomain, len(lonEdges), len(latEdges))
	}

	res := newResult(lonEdges, latEdges, s.Levels)
	for k := range s.Levels {
		tree := levelIndex(s, k)
		for i := range res.NX {
			for j := range res.NY {
				aggregateCell(res, s, tree, i, j, k)
			}
		}
	}
	return res, nil
}

// extent computes the domain bounds from the horizontal coordinates averaged
// over levels.
func extent(s *domain.SampleStack) (lonMin, lonMax, latMin, latMax float64, err error) {
	if s == nil || s.Len() == 0 || s.Levels == 0 {
		return 0, 0, 0, 0, fmt.Errorf("%w: no samples", ErrDegenerateDomain)
	}
	lonMin, latMin = math.Inf(1), math.Inf(1)
	lonMax, latMax = math.Inf(-1), math.Inf(-1)
	for r := range s.Ranges {
		for a := range s.Azimuths {
			var lon, lat float64
			for k := range s.Levels {
				n := s.Index(r, a, k)
				lon += s.Lon[n]
				lat += s.Lat[n]
			}
			lon /= float64(s.Levels)
			lat /= float64(s.Levels)
			if !finite(lon) || !finite(lat) {
				continue
			}
			lonMin, lonMax = math.Min(lonMin, lon), math.Max(lonMax, lon)
			latMin, latMax = math.Min(latMin, lat), math.Max(latMax, lat)
		}
	}
	if math.IsInf(lonMin, 1) {
		return 0, 0, 0, 0, fmt.Errorf("%w: no finite positions", ErrDegenerateDomain)
	}
	return lonMin, lonMax, latMin, latMax, nil
}

type sample struct {
	index int
	at    rtreego.Point
}

func (s *sample) Bounds() rtreego.Rect {
	return s.at.ToRect(1e-12)
}

func levelIndex(s *domain.SampleStack, k int) *rtreego.Rtree {
	var objs []rtreego.Spatial
	for r := range s.Ranges {
		for a := range s.Azimuths {
			n := s.Index(r, a, k)
			if !finite(s.Lon[n]) || !finite(s.Lat[n]) {
				continue
			}
			objs = append(objs, &sample{index: n, at: rtreego.Point{s.Lon[n], s.Lat[n]}})
		}
	}
	return rtreego.NewTree(2, 25, 50, objs...)
}

// aggregateCell averages the samples of level k inside cell (i, j). The tree
// query is a coarse superset; membership is decided by the half-open test.
func aggregateCell(res *Result, s *domain.SampleStack, tree *rtreego.Rtree, i, j, k int) {
	x0, x1 := res.LonEdges[i], res.LonEdges[i+1]
	y0, y1 := res.LatEdges[j], res.LatEdges[j+1]
	bb, err := rtreego.NewRect(rtreego.Point{x0, y0}, []float64{x1 - x0, y1 - y0})

	var alt, dbz, vel mean
	count := 0
	if err == nil {
		for _, obj := range tree.SearchIntersect(bb) {
			smp, ok := obj.(*sample)
			if !ok {
				continue
			}
			lon, lat := smp.at[0], smp.at[1]
			if lon < x0 || lon >= x1 || lat < y0 || lat >= y1 {
				continue
			}
			count++
			alt.addAll(s.Alt[smp.index])
			dbz.add(s.Reflectivity[smp.index])
			vel.add(s.Velocity[smp.index])
		}
	}

	n := res.Index(i, j, k)
	res.Alt[n], res.Reflectivity[n], res.Velocity[n] = domain.NoData, domain.NoData, domain.NoData
	if count > 0 && finite(dbz.value()) && finite(vel.value()) {
		res.Alt[n], res.Reflectivity[n], res.Velocity[n] = alt.value(), dbz.value(), vel.value()
	}
	res.AltValid[n] = res.Alt[n] != domain.NoData
	res.ReflectivityValid[n] = res.Reflectivity[n] != domain.NoData
	res.VelocityValid[n] = res.Velocity[n] != domain.NoData
}

// mean accumulates an average. add skips NaN, addAll does not.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	m.addAll(v)
}

func (m *mean) addAll(v float64) {
	m.sum += v
	m.n++
}

func (m *mean) value() float64 {
	if m.n == 0 {
		return math.NaN()
	}
	return m.sum / float64(m.n)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
