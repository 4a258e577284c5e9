package grid

import (
	"math"
	"testing"

	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds a one-level 3x3 result; nan marks a no-data cell.
func fixture(dbz [3][3]float64) *Result {
	res := newResult([]float64{0, 1, 2, 3}, []float64{0, 1, 2, 3}, 1)
	for i := range 3 {
		for j := range 3 {
			n := res.Index(i, j, 0)
			if math.IsNaN(dbz[i][j]) {
				res.Alt[n], res.Reflectivity[n], res.Velocity[n] = domain.NoData, domain.NoData, domain.NoData
				continue
			}
			res.Alt[n], res.Reflectivity[n], res.Velocity[n] = 1000, dbz[i][j], -dbz[i][j]
			res.AltValid[n], res.ReflectivityValid[n], res.VelocityValid[n] = true, true, true
		}
	}
	return res
}

func TestParseNeighborPolicy(t *testing.T) {
	p, err := ParseNeighborPolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, NeighborSkip, p)

	_, err = ParseNeighborPolicy("median")
	assert.ErrorContains(t, err, "median")
}

func TestEstimator_ReflectivityUniformNeighborhood(t *testing.T) {
	res := fixture([3][3]float64{{20, 20, 20}, {20, 20, 20}, {20, 20, 20}})
	for _, p := range []NeighborPolicy{NeighborSentinel, NeighborSkip} {
		assert.Zero(t, Estimator{Policy: p}.Reflectivity(res, 1, 1, 0))
	}
}

func TestEstimator_ReflectivityCornerUsesInBoundsNeighbors(t *testing.T) {
	res := fixture([3][3]float64{{10, 30, 0}, {30, 10, 0}, {0, 0, 0}})
	// corner (0,0) sees {10, 30, 30, 10}
	assert.InDelta(t, 10.0, Estimator{Policy: NeighborSkip}.Reflectivity(res, 0, 0, 0), 1e-12)
}

func TestEstimator_NoDataNeighbors(t *testing.T) {
	res := fixture([3][3]float64{{10, 20, nan}, {nan, nan, nan}, {nan, nan, nan}})

	skip := Estimator{Policy: NeighborSkip}.Reflectivity(res, 0, 0, 0)
	assert.InDelta(t, 5.0, skip, 1e-12)

	// {10, 20, 999999, 999999}
	mu := (10 + 20 + 2*domain.NoData) / 4
	want := math.Sqrt(((10-mu)*(10-mu) + (20-mu)*(20-mu) + 2*(domain.NoData-mu)*(domain.NoData-mu)) / 4)
	sentinel := Estimator{Policy: NeighborSentinel}.Reflectivity(res, 0, 0, 0)
	assert.InDelta(t, want, sentinel, 1e-6)
	assert.Greater(t, sentinel, skip)
}

func TestEstimator_Velocity(t *testing.T) {
	res := fixture([3][3]float64{{12.5, 0, 0}, {0, 0, 0}, {0, 0, 0}})
	assert.InDelta(t, 1.25, Estimator{}.Velocity(res, 0, 0, 0), 1e-12)
}

func TestEstimator_SingleCellGridHasZeroSpread(t *testing.T) {
	res, err := Aggregate(stackOf(append(corners(), point{lon: 0.04, lat: 0.04, alt: 700, dbz: 41, vel: -13})))
	require.NoError(t, err)
	require.True(t, res.Valid(0, 0, 0))

	e := Estimator{Policy: NeighborSentinel}
	assert.Zero(t, e.Reflectivity(res, 0, 0, 0))
	assert.InDelta(t, 1.3, e.Velocity(res, 0, 0, 0), 1e-12)
}
