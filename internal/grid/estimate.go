package grid

import (
	"fmt"
	"math"
)

// NeighborPolicy decides how no-data neighbors enter the reflectivity error.
type NeighborPolicy string

const (
	// NeighborSentinel lets a no-data neighbor contribute its raw sentinel
	// value to the standard deviation, matching existing assimilation output.
	NeighborSentinel NeighborPolicy = "sentinel"
	// NeighborSkip leaves no-data neighbors out of the neighborhood.
	NeighborSkip NeighborPolicy = "skip"
)

// ParseNeighborPolicy validates a policy name.
func ParseNeighborPolicy(s string) (NeighborPolicy, error) {
	switch p := NeighborPolicy(s); p {
	case NeighborSentinel, NeighborSkip:
		return p, nil
	default:
		return "", fmt.Errorf("unknown neighbor policy %q", s)
	}
}

// Estimator computes per-observation errors for valid grid cells.
type Estimator struct {
	Policy NeighborPolicy
}

// Reflectivity is the population standard deviation of the in-bounds 3x3
// neighborhood of (i, j) at level k.
func (e Estimator) Reflectivity(r *Result, i, j, k int) float64 {
	var values []float64
	for x := i - 1; x <= i+1; x++ {
		for y := j - 1; y <= j+1; y++ {
			if x < 0 || x >= r.NX || y < 0 || y >= r.NY {
				continue
			}
			n := r.Index(x, y, k)
			if e.Policy == NeighborSkip && !r.ReflectivityValid[n] {
				continue
			}
			values = append(values, r.Reflectivity[n])
		}
	}
	return stddev(values)
}

// Velocity is a tenth of the measured radial velocity magnitude.
func (Estimator) Velocity(r *Result, i, j, k int) float64 {
	return math.Abs(r.Velocity[r.Index(i, j, k)]) / 10
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mu := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mu) * (v - mu)
	}
	return math.Sqrt(sq / float64(len(values)))
}
