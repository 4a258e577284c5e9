package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "obsprep"

// Metrics holds the Prometheus counters, histograms, and gauges for a preparation run.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Radar stage metrics.
	RadarFilesSelected  prometheus.Counter
	RadarFilesProcessed prometheus.Counter
	RadarFilesFailed    *prometheus.CounterVec // labels: stage={fetch,decode,project,grid,encode}
	GridCellsWritten    prometheus.Counter
	DownloadAttempts    *prometheus.CounterVec // labels: outcome={success,retry,exhausted}

	// Observation output metrics.
	StationsWritten    *prometheus.CounterVec // labels: type={radar,metar,sound,synop,radiom}
	ValidFieldsWritten *prometheus.CounterVec // labels: type

	StageDuration *prometheus.HistogramVec // labels: stage={radar,surface}
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.PipelineRunning,
		m.RadarFilesSelected,
		m.RadarFilesProcessed,
		m.RadarFilesFailed,
		m.GridCellsWritten,
		m.DownloadAttempts,
		m.StationsWritten,
		m.ValidFieldsWritten,
		m.StageDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 while a preparation run is active, 0 otherwise."),
		}),
		RadarFilesSelected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "radar_files_selected_total",
			Help:      help("Radar volumes chosen by the temporal matcher."),
		}),
		RadarFilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "radar_files_processed_total",
			Help:      help("Radar volumes written to the radar observation file."),
		}),
		RadarFilesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "radar_files_failed_total",
			Help:      help("Radar volumes skipped, by the stage that failed."),
		}, []string{"stage"}),
		GridCellsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grid_cells_written_total",
			Help:      help("Grid cells with at least one valid level written as radar records."),
		}),
		DownloadAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_attempts_total",
			Help:      help("Archive fetch attempts by outcome."),
		}, []string{"outcome"}),
		StationsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stations_written_total",
			Help:      help("Stations written by observation type."),
		}, []string{"type"}),
		ValidFieldsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "valid_fields_written_total",
			Help:      help("Measured data fields written by observation type."),
		}, []string{"type"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      help("Duration of a run stage."),
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
	}
}
