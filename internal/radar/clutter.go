package radar

import (
	"math"

	"github.com/dhconnelly/rtreego"
)

// Cleaner replaces non-meteorological echoes in one sweep field shaped
// [ray][bin]. The input is not modified.
type Cleaner interface {
	Clean(field [][]float64) [][]float64
}

// Gabella detects clutter with the two Gabella tests (local texture and
// echo-cluster compactness) and replaces flagged bins with the nearest
// unflagged bin of the same sweep.
type Gabella struct {
	Window    int     // texture window edge, odd
	Tr1       float64 // texture difference threshold
	Neighbors int     // minimum similar neighbors for a meteorological echo
	Tr2       float64 // cluster area/boundary ratio threshold
	NoRain    float64 // values above this form echo clusters
}

// NewGabella returns the filter with window 5, tr1=12, n_p=6, tr2=1.1.
func NewGabella() Gabella {
	return Gabella{Window: 5, Tr1: 12, Neighbors: 6, Tr2: 1.1, NoRain: 0}
}

func (g Gabella) Clean(field [][]float64) [][]float64 {
	out := copyField(field)
	if len(field) == 0 || len(field[0]) == 0 {
		return out
	}
	clutter := g.Detect(field)
	interpolateNearest(out, clutter)
	return out
}

// Detect flags clutter bins.
func (g Gabella) Detect(field [][]float64) [][]bool {
	img := copyField(field)
	for _, ray := range img {
		for r, v := range ray {
			if math.IsNaN(v) {
				ray[r] = math.Inf(1)
			}
		}
	}

	texture := g.textureCount(img)
	ratio := clusterRatio(img, g.NoRain)

	out := make([][]bool, len(img))
	for a := range img {
		out[a] = make([]bool, len(img[a]))
		for r := range img[a] {
			out[a][r] = texture[a][r] < g.Neighbors || math.Abs(ratio[a][r]) < g.Tr2
		}
	}
	return out
}

// textureCount counts, for every bin, the window members (itself excluded)
// whose value differs by less than Tr1. Both axes wrap. The nn bins closest
// to either range edge are never flagged.
func (g Gabella) textureCount(img [][]float64) [][]int {
	na, nr := len(img), len(img[0])
	nn := g.Window / 2
	full := g.Window * g.Window

	count := make([][]int, na)
	for a := range img {
		count[a] = make([]int, nr)
		for r := range img[a] {
			if r < nn || r >= nr-nn {
				count[a][r] = full
				continue
			}
			c := -1
			for sa := -nn; sa <= nn; sa++ {
				ra := mod(a-sa, na)
				for sr := -nn; sr <= nn; sr++ {
					rr := mod(r-sr, nr)
					if math.Abs(img[ra][rr]-img[a][r]) < g.Tr1 {
						c++
					}
				}
			}
			count[a][r] = c
		}
	}
	return count
}

// clusterRatio labels 8-connected echo regions above thrs and assigns every
// bin the ratio between its region's area and boundary size. Background bins
// share one ratio whose boundary term is negative.
func clusterRatio(img [][]float64, thrs float64) [][]float64 {
	na, nr := len(img), len(img[0])
	rain := make([][]bool, na)
	for a := range img {
		rain[a] = make([]bool, nr)
		for r, v := range img[a] {
			rain[a][r] = v > thrs
		}
	}

	labels, n := label8(rain)

	area := make([]float64, n+1)
	interior := make([]float64, n+1)
	for a := range labels {
		for r, l := range labels[a] {
			area[l]++
			if l > 0 && eroded(rain, a, r) {
				interior[l]++
			} else {
				interior[0]++
			}
		}
	}

	ratio := make([]float64, n+1)
	for l := range ratio {
		ratio[l] = area[l] / (area[l] - interior[l])
	}

	out := make([][]float64, na)
	for a := range labels {
		out[a] = make([]float64, nr)
		for r, l := range labels[a] {
			out[a][r] = ratio[l]
		}
	}
	return out
}

// label8 assigns 1-based labels to 8-connected true regions, without wrap.
func label8(mask [][]bool) ([][]int, int) {
	na, nr := len(mask), len(mask[0])
	labels := make([][]int, na)
	for a := range labels {
		labels[a] = make([]int, nr)
	}

	n := 0
	var stack [][2]int
	for a := range mask {
		for r := range mask[a] {
			if !mask[a][r] || labels[a][r] != 0 {
				continue
			}
			n++
			labels[a][r] = n
			stack = append(stack[:0], [2]int{a, r})
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for da := -1; da <= 1; da++ {
					for dr := -1; dr <= 1; dr++ {
						qa, qr := p[0]+da, p[1]+dr
						if qa < 0 || qa >= na || qr < 0 || qr >= nr {
							continue
						}
						if mask[qa][qr] && labels[qa][qr] == 0 {
							labels[qa][qr] = n
							stack = append(stack, [2]int{qa, qr})
						}
					}
				}
			}
		}
	}
	return labels, n
}

// eroded reports whether (a, r) survives a 3x3 binary erosion with a false
// border.
func eroded(mask [][]bool, a, r int) bool {
	na, nr := len(mask), len(mask[0])
	for da := -1; da <= 1; da++ {
		for dr := -1; dr <= 1; dr++ {
			qa, qr := a+da, r+dr
			if qa < 0 || qa >= na || qr < 0 || qr >= nr || !mask[qa][qr] {
				return false
			}
		}
	}
	return true
}

type polarBin struct {
	ray, bin int
	at       rtreego.Point
}

func (b *polarBin) Bounds() rtreego.Rect {
	return b.at.ToRect(1e-9)
}

// interpolateNearest overwrites flagged bins with the value of the nearest
// unflagged bin, measured on the polar grid laid out in Cartesian index space.
func interpolateNearest(field [][]float64, flagged [][]bool) {
	na := len(field)
	var sources []rtreego.Spatial
	var targets []*polarBin
	for a := range field {
		for r := range field[a] {
			b := &polarBin{ray: a, bin: r, at: polarPoint(a, r, na)}
			if flagged[a][r] {
				targets = append(targets, b)
			} else {
				sources = append(sources, b)
			}
		}
	}
	if len(targets) == 0 || len(sources) == 0 {
		return
	}

	tree := rtreego.NewTree(2, 25, 50, sources...)
	for _, t := range targets {
		src, ok := tree.NearestNeighbor(t.at).(*polarBin)
		if !ok {
			continue
		}
		field[t.ray][t.bin] = field[src.ray][src.bin]
	}
}

func polarPoint(ray, bin, rays int) rtreego.Point {
	theta := 2 * math.Pi * float64(ray) / float64(rays)
	rho := float64(bin) + 0.5
	return rtreego.Point{rho * math.Sin(theta), rho * math.Cos(theta)}
}

func copyField(field [][]float64) [][]float64 {
	out := make([][]float64, len(field))
	for i := range field {
		out[i] = append([]float64(nil), field[i]...)
	}
	return out
}

func mod(i, n int) int {
	return ((i % n) + n) % n
}
