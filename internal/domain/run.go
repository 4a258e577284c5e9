package domain

import "time"

// RunSummary describes one preparation run. It is logged at the end of the
// run and optionally published.
type RunSummary struct {
	ID           string         `json:"id"`
	AnalysisTime time.Time      `json:"analysis_time"`
	WindowStart  time.Time      `json:"window_start"`
	WindowEnd    time.Time      `json:"window_end"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	Radar        RadarSummary   `json:"radar"`
	Stations     map[string]int `json:"stations"`     // by observation type
	ValidFields  map[string]int `json:"valid_fields"` // by observation type
	Outputs      []string       `json:"outputs"`
}

// RadarSummary counts radar volumes through the stages of a run.
type RadarSummary struct {
	Listed    int            `json:"listed"`
	Selected  int            `json:"selected"`
	Fetched   int            `json:"fetched"`
	Processed int            `json:"processed"`
	Failed    map[string]int `json:"failed"` // by stage
	Cells     int            `json:"cells"`
	Snapshots int            `json:"snapshots"`
}

// NewRunSummary starts a summary for the window.
func NewRunSummary(id string, w AnalysisWindow) *RunSummary {
	return &RunSummary{
		ID:           id,
		AnalysisTime: w.T0,
		WindowStart:  w.Start(),
		WindowEnd:    w.End(),
		StartedAt:    Now(),
		Radar:        RadarSummary{Failed: make(map[string]int)},
		Stations:     make(map[string]int),
		ValidFields:  make(map[string]int),
	}
}

// Duration is the wall time of a finished run.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
