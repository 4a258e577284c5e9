package catalog

import (
	"sort"
	"time"
)

// Selection is the volume closest to the analysis time for one station plus
// its immediate neighbors in time. A neighbor is nil when the nearest volume
// is first or last in the station's sequence.
type Selection struct {
	Station  string
	Nearest  Entry
	Previous *Entry
	Next     *Entry
}

// Entries returns the selected files in time order.
func (s Selection) Entries() []Entry {
	out := make([]Entry, 0, 3)
	if s.Previous != nil {
		out = append(out, *s.Previous)
	}
	out = append(out, s.Nearest)
	if s.Next != nil {
		out = append(out, *s.Next)
	}
	return out
}

// Select picks, for every station prefix, the entry minimizing |t - t0| and
// its predecessor and successor within that station's filename-sorted
// sequence. Ties go to the earlier entry. Stations are returned in sorted
// order; an empty input yields no selections.
func Select(entries []Entry, t0 time.Time) []Selection {
	byStation := make(map[string][]Entry)
	for _, e := range entries {
		byStation[e.Station] = append(byStation[e.Station], e)
	}

	stations := make([]string, 0, len(byStation))
	for s := range byStation {
		stations = append(stations, s)
	}
	sort.Strings(stations)

	out := make([]Selection, 0, len(stations))
	for _, station := range stations {
		seq := byStation[station]
		sort.SliceStable(seq, func(i, j int) bool { return seq[i].Name < seq[j].Name })

		idx := nearest(seq, t0)
		sel := Selection{Station: station, Nearest: seq[idx]}
		if idx > 0 {
			prev := seq[idx-1]
			sel.Previous = &prev
		}
		if idx < len(seq)-1 {
			next := seq[idx+1]
			sel.Next = &next
		}
		out = append(out, sel)
	}
	return out
}

func nearest(seq []Entry, t0 time.Time) int {
	best := 0
	bestDist := absDuration(seq[0].Time.Sub(t0))
	for i := 1; i < len(seq); i++ {
		if d := absDuration(seq[i].Time.Sub(t0)); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
