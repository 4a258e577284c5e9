package radar

import (
	"math"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
)

const azimuthWrapEpsilon = 1e-8

// AzimuthCenter averages a ray's start and stop azimuth. A stop angle smaller
// than the start by more than a negligible amount means the ray crossed
// north, so start is shifted by -360° before averaging.
func AzimuthCenter(start, stop float64) float64 {
	if start-stop < azimuthWrapEpsilon {
		return (start + stop) / 2
	}
	return ((start - 360) + stop) / 2
}

// ElevationCenter is the sweep's elevation, taken from its first ray.
func ElevationCenter(s domain.Sweep) float64 {
	if len(s.Rays) == 0 {
		return math.NaN()
	}
	return (s.Rays[0].ElevationStart + s.Rays[0].ElevationStop) / 2
}

// RangeCenters returns the distance to the center of every bin, in meters.
func RangeCenters(s domain.Sweep) []float64 {
	n := s.Bins()
	out := make([]float64, n)
	for i := range out {
		out[i] = s.FirstBin + float64(i)*s.BinStep + s.BinStep/2
	}
	return out
}
