package radar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantField(rays, bins int, v float64) [][]float64 {
	f := make([][]float64, rays)
	for a := range f {
		f[a] = make([]float64, bins)
		for r := range f[a] {
			f[a][r] = v
		}
	}
	return f
}

func countFlags(m [][]bool) int {
	n := 0
	for _, row := range m {
		for _, b := range row {
			if b {
				n++
			}
		}
	}
	return n
}

func TestGabella_UniformEchoIsNotClutter(t *testing.T) {
	f := constantField(10, 20, 25)
	assert.Zero(t, countFlags(NewGabella().Detect(f)))
}

func TestGabella_IsolatedSpeckleIsRemoved(t *testing.T) {
	f := constantField(12, 20, 0)
	f[5][10] = 50

	flags := NewGabella().Detect(f)
	assert.True(t, flags[5][10])
	assert.Equal(t, 1, countFlags(flags))

	cleaned := NewGabella().Clean(f)
	assert.Equal(t, 0.0, cleaned[5][10])
	assert.Equal(t, 50.0, f[5][10], "input must not be modified")
}

func TestGabella_NaNBinsDoNotPanic(t *testing.T) {
	f := constantField(6, 8, math.NaN())
	f[2][3] = 10
	cleaned := NewGabella().Clean(f)
	require.Len(t, cleaned, 6)
	require.Len(t, cleaned[0], 8)
}

func TestLabel8(t *testing.T) {
	mask := [][]bool{
		{true, false, false, true},
		{false, true, false, true},
		{false, false, false, false},
		{true, true, false, false},
	}
	labels, n := label8(mask)
	assert.Equal(t, 3, n)
	assert.Equal(t, labels[0][0], labels[1][1], "diagonal neighbors share a label")
	assert.Equal(t, labels[0][3], labels[1][3])
	assert.Equal(t, labels[3][0], labels[3][1])
	assert.Zero(t, labels[2][2])
}

func TestInterpolateNearest(t *testing.T) {
	f := [][]float64{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	}
	flags := [][]bool{
		{false, false, false, true},
		{false, false, false, false},
	}
	interpolateNearest(f, flags)
	// (ray 0, bin 3) is nearest to (ray 0, bin 2) on the polar layout.
	assert.Equal(t, 3.0, f[0][3])
}

func TestFloorMasked(t *testing.T) {
	f := [][]float64{{-32, 10, -32}, {20, math.NaN(), -32}}
	out := FloorMasked{Inner: identity{}}.Clean(f)
	assert.True(t, math.IsNaN(out[0][0]))
	assert.Equal(t, 10.0, out[0][1])
	assert.Equal(t, 20.0, out[1][0])
	assert.True(t, math.IsNaN(out[1][2]))
}

type identity struct{}

func (identity) Clean(f [][]float64) [][]float64 { return copyField(f) }
