package domain

import "time"

// RadarVolume is one decoded scan cycle of one station. Immutable once decoded.
type RadarVolume struct {
	Station    string
	Latitude   float64 // degrees
	Longitude  float64 // degrees
	Height     float64 // site + antenna height, m above sea level
	IngestTime time.Time
	Sweeps     []Sweep
}

// Sweep is one antenna rotation at a fixed elevation.
type Sweep struct {
	FirstBin float64 // distance to the leading edge of the first bin, m
	LastBin  float64 // distance to the trailing edge of the last bin, m
	BinStep  float64 // m
	Rays     []Ray
}

// Ray is one azimuth of a sweep. Reflectivity and Velocity have one entry per
// range bin; NaN marks an invalid bin.
type Ray struct {
	AzimuthStart   float64
	AzimuthStop    float64
	ElevationStart float64
	ElevationStop  float64
	Reflectivity   []float64 // dBZ
	Velocity       []float64 // m/s
}

// Bins returns the range-bin count of the sweep, taken from its first ray.
func (s Sweep) Bins() int {
	if len(s.Rays) == 0 {
		return 0
	}
	return len(s.Rays[0].Reflectivity)
}
