package radar

import (
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
)

// ErrGeometry marks a volume whose sweeps or range header cannot be projected.
var ErrGeometry = errors.New("radar geometry")

// Projector cleans every sweep and attaches geographic coordinates.
type Projector struct {
	reflectivity Cleaner
	velocity     Cleaner
	georef       Georeferencer
}

// NewProjector creates a Projector with one cleaner per physical quantity.
func NewProjector(reflectivity, velocity Cleaner, g Georeferencer) *Projector {
	return &Projector{reflectivity: reflectivity, velocity: velocity, georef: g}
}

// NewDefaultProjector uses the Gabella filter for both quantities, masks the
// reflectivity floor and georeferences with the 4/3 earth model.
func NewDefaultProjector() *Projector {
	g := NewGabella()
	return NewProjector(FloorMasked{Inner: g}, g, NewEffectiveEarth())
}

// Project stacks the cleaned sweeps of v into a (range, azimuth, level)
// sample array. Azimuths come from the first sweep; all sweeps must share
// its ray and bin counts.
func (p *Projector) Project(v *domain.RadarVolume) (*domain.SampleStack, error) {
	if err := validate(v); err != nil {
		return nil, err
	}

	first := v.Sweeps[0]
	ranges := RangeCenters(first)
	azimuths := make([]float64, len(first.Rays))
	for i, ray := range first.Rays {
		azimuths[i] = AzimuthCenter(ray.AzimuthStart, ray.AzimuthStop)
	}

	site := Site{Longitude: v.Longitude, Latitude: v.Latitude, Height: v.Height}
	stack := domain.NewSampleStack(len(ranges), len(azimuths), len(v.Sweeps))

	for k, sweep := range v.Sweeps {
		elevation := ElevationCenter(sweep)
		dbz := p.reflectivity.Clean(field(sweep, func(r domain.Ray) []float64 { return r.Reflectivity }))
		vel := p.velocity.Clean(field(sweep, func(r domain.Ray) []float64 { return r.Velocity }))

		for r, rng := range ranges {
			for a, az := range azimuths {
				i := stack.Index(r, a, k)
				stack.Lon[i], stack.Lat[i], stack.Alt[i] = p.georef.Georeference(site, rng, az, elevation)
				stack.Reflectivity[i] = dbz[a][r]
				stack.Velocity[i] = vel[a][r]
			}
		}
	}
	return stack, nil
}

func validate(v *domain.RadarVolume) error {
	if v == nil || len(v.Sweeps) == 0 {
		return fmt.Errorf("%w: volume has no completed sweeps", ErrGeometry)
	}
	first := v.Sweeps[0]
	rays, bins := len(first.Rays), first.Bins()
	if rays == 0 || bins == 0 {
		return fmt.Errorf("%w: first sweep is empty", ErrGeometry)
	}

	for k, s := range v.Sweeps {
		if s.BinStep <= 0 {
			return fmt.Errorf("%w: sweep %d has bin step %g", ErrGeometry, k+1, s.BinStep)
		}
		if s.LastBin > 0 {
			if want := int(math.Round((s.LastBin - s.FirstBin) / s.BinStep)); want != s.Bins() {
				return fmt.Errorf("%w: sweep %d range header describes %d bins, data has %d", ErrGeometry, k+1, want, s.Bins())
			}
		}
		if len(s.Rays) != rays {
			return fmt.Errorf("%w: sweep %d has %d rays, sweep 1 has %d", ErrGeometry, k+1, len(s.Rays), rays)
		}
		for i, ray := range s.Rays {
			if len(ray.Reflectivity) != bins || len(ray.Velocity) != bins {
				return fmt.Errorf("%w: sweep %d ray %d has %d/%d bins, want %d", ErrGeometry, k+1, i, len(ray.Reflectivity), len(ray.Velocity), bins)
			}
		}
	}
	return nil
}

func field(s domain.Sweep, pick func(domain.Ray) []float64) [][]float64 {
	out := make([][]float64, len(s.Rays))
	for i, ray := range s.Rays {
		out[i] = pick(ray)
	}
	return out
}

// FloorMasked runs Inner and then invalidates every value not above the
// cleaned sweep's minimum, which is where the decoder parks "below detection".
type FloorMasked struct {
	Inner Cleaner
}

func (f FloorMasked) Clean(field [][]float64) [][]float64 {
	out := f.Inner.Clean(field)
	maskFloor(out)
	return out
}

func maskFloor(f [][]float64) {
	lowest := math.Inf(1)
	for _, ray := range f {
		for _, v := range ray {
			if !math.IsNaN(v) && v < lowest {
				lowest = v
			}
		}
	}
	if math.IsInf(lowest, 1) {
		return
	}
	for _, ray := range f {
		for r, v := range ray {
			if v <= lowest {
				ray[r] = math.NaN()
			}
		}
	}
}
