package domain

import (
	"fmt"
	"time"
)

// AnalysisWindow is the analysis time T0 and the half-window around it.
type AnalysisWindow struct {
	T0   time.Time
	Half time.Duration
}

// NewAnalysisWindow builds a window from the full assimilation window length.
// The half-window is truncated to whole hours.
func NewAnalysisWindow(t0 time.Time, full time.Duration) AnalysisWindow {
	half := (full / 2).Truncate(time.Hour)
	return AnalysisWindow{T0: t0.UTC(), Half: half}
}

// Start is T0-Δ.
func (w AnalysisWindow) Start() time.Time { return w.T0.Add(-w.Half) }

// End is T0+Δ.
func (w AnalysisWindow) End() time.Time { return w.T0.Add(w.Half) }

// Contains reports whether t lies strictly inside the window.
func (w AnalysisWindow) Contains(t time.Time) bool {
	return t.After(w.Start()) && t.Before(w.End())
}

// Stamp formats T0 as YYYYMMDDHH, the suffix of the merged observation file.
func (w AnalysisWindow) Stamp() string { return w.T0.Format("2006010215") }

// ParseAnalysisTime accepts RFC 3339 or the compact YYYYMMDDHH form.
func ParseAnalysisTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006010215", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse analysis time %q: expected RFC 3339 or YYYYMMDDHH", s)
	}
	return t, nil
}

// DefaultAnalysisTime is the current hour from the package clock.
func DefaultAnalysisTime() time.Time {
	return Now().Truncate(time.Hour)
}
