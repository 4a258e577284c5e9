package domain

// SampleStack holds the geolocated samples of one volume shaped
// (range, azimuth, level). Invalid physical values are NaN.
type SampleStack struct {
	Ranges, Azimuths, Levels int

	Lon          []float64
	Lat          []float64
	Alt          []float64
	Reflectivity []float64
	Velocity     []float64
}

// NewSampleStack allocates a stack of the given shape.
func NewSampleStack(ranges, azimuths, levels int) *SampleStack {
	n := ranges * azimuths * levels
	return &SampleStack{
		Ranges:       ranges,
		Azimuths:     azimuths,
		Levels:       levels,
		Lon:          make([]float64, n),
		Lat:          make([]float64, n),
		Alt:          make([]float64, n),
		Reflectivity: make([]float64, n),
		Velocity:     make([]float64, n),
	}
}

// Index returns the flat offset of (r, a, k).
func (s *SampleStack) Index(r, a, k int) int {
	return (r*s.Azimuths+a)*s.Levels + k
}

// Len is the total sample count.
func (s *SampleStack) Len() int { return len(s.Lon) }
