package config

import (
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/catalog"
	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/couchcryptid/wrf-obsprep/internal/grid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func TestLoad_Defaults(t *testing.T) {
	freezeClock(t, time.Date(2017, 6, 8, 0, 41, 7, 0, time.UTC))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Date(2017, 6, 8, 0, 0, 0, 0, time.UTC), cfg.AnalysisTime)
	assert.Equal(t, 6*time.Hour, cfg.AssimWindow)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, ObsFlags{Radar: true, METAR: true, Sound: true, Synop: true, Radiom: true}, cfg.Obs)
	assert.Equal(t, SourceLocal, cfg.RadarSource)
	assert.Equal(t, filepath.Join("data", "radar", "archive"), cfg.RadarSourceURL)
	assert.Equal(t, catalog.DefaultPattern, cfg.RadarFilePattern)
	assert.Equal(t, runtime.NumCPU(), cfg.DownloadWorkers)
	assert.Equal(t, 3, cfg.DownloadAttempts)
	assert.Equal(t, 30*time.Second, cfg.DownloadRetryWait)
	assert.Equal(t, grid.NeighborSentinel, cfg.NeighborPolicy)
	assert.Empty(t, cfg.SnapshotDir)
	assert.Equal(t, filepath.Join("data", "nsd_cccc.txt"), cfg.StationDirectory)
	assert.Equal(t, 1000, cfg.StationCacheSize)
	assert.Equal(t, time.Hour, cfg.StationCacheTTL)
	assert.Equal(t, "metaf2xml.pl", cfg.SynopDecoder)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "obsprep-runs", cfg.KafkaTopic)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	w := cfg.Window()
	assert.Equal(t, 3*time.Hour, w.Half)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("ANALYSIS_TIME", "2017060812")
	t.Setenv("ASSIM_WINDOW", "3h")
	t.Setenv("DATA_DIR", "/srv/obs")
	t.Setenv("OUTPUT_DIR", "/srv/wrfda")
	t.Setenv("OBS_SYNOP", "false")
	t.Setenv("OBS_RADIOM", "0")
	t.Setenv("RADAR_SOURCE", "s3")
	t.Setenv("RADAR_BUCKET", "radar-archive")
	t.Setenv("RADAR_PREFIX", "ideam")
	t.Setenv("DOWNLOAD_WORKERS", "2")
	t.Setenv("DOWNLOAD_ATTEMPTS", "5")
	t.Setenv("DOWNLOAD_RETRY_WAIT", "1s")
	t.Setenv("ERROR_NEIGHBOR_POLICY", "skip")
	t.Setenv("STATION_CACHE_SIZE", "50")
	t.Setenv("SNAPSHOT_DIR", "/srv/snap")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "runs")
	t.Setenv("LOG_FILE", "/var/log/obsprep.log")
	t.Setenv("LOG_COMPRESS", "true")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Date(2017, 6, 8, 12, 0, 0, 0, time.UTC), cfg.AnalysisTime)
	assert.Equal(t, time.Hour, cfg.Window().Half)
	assert.Equal(t, "/srv/wrfda", cfg.OutputDir)
	assert.Equal(t, filepath.Join("/srv/obs", "nsd_cccc.txt"), cfg.StationDirectory)
	assert.Equal(t, ObsFlags{Radar: true, METAR: true, Sound: true}, cfg.Obs)
	assert.Equal(t, SourceS3, cfg.RadarSource)
	assert.Equal(t, "radar-archive", cfg.RadarBucket)
	assert.Equal(t, "ideam", cfg.RadarPrefix)
	assert.Equal(t, 2, cfg.DownloadWorkers)
	assert.Equal(t, 5, cfg.DownloadAttempts)
	assert.Equal(t, time.Second, cfg.DownloadRetryWait)
	assert.Equal(t, grid.NeighborSkip, cfg.NeighborPolicy)
	assert.Equal(t, 50, cfg.StationCacheSize)
	assert.Equal(t, "/srv/snap", cfg.SnapshotDir)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "runs", cfg.KafkaTopic)
	assert.Equal(t, "/var/log/obsprep.log", cfg.LogFile)
	assert.True(t, cfg.LogCompress)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_AnalysisTimeRFC3339(t *testing.T) {
	t.Setenv("ANALYSIS_TIME", "2017-06-08T07:00:00-05:00")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2017, 6, 8, 12, 0, 0, 0, time.UTC), cfg.AnalysisTime)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "not-a-duration"}, "SHUTDOWN_TIMEOUT"},
		{"analysis time", map[string]string{"ANALYSIS_TIME": "yesterday"}, "ANALYSIS_TIME"},
		{"window not a duration", map[string]string{"ASSIM_WINDOW": "six hours"}, "ASSIM_WINDOW"},
		{"window too short", map[string]string{"ASSIM_WINDOW": "1h"}, "ASSIM_WINDOW"},
		{"obs flag", map[string]string{"OBS_METAR": "maybe"}, "OBS_METAR"},
		{"all obs disabled", map[string]string{
			"OBS_RADAR": "false", "OBS_METAR": "false", "OBS_SOUND": "false", "OBS_SYNOP": "false", "OBS_RADIOM": "false",
		}, "OBS_RADAR"},
		{"source", map[string]string{"RADAR_SOURCE": "ftp"}, "RADAR_SOURCE"},
		{"s3 without bucket", map[string]string{"RADAR_SOURCE": "s3"}, "RADAR_BUCKET"},
		{"gcs without bucket", map[string]string{"RADAR_SOURCE": "gcs"}, "RADAR_BUCKET"},
		{"pattern groups", map[string]string{"RADAR_FILE_PATTERN": `^(\w{3})`}, "RADAR_FILE_PATTERN"},
		{"workers", map[string]string{"DOWNLOAD_WORKERS": "0"}, "DOWNLOAD_WORKERS"},
		{"attempts", map[string]string{"DOWNLOAD_ATTEMPTS": "many"}, "DOWNLOAD_ATTEMPTS"},
		{"retry wait", map[string]string{"DOWNLOAD_RETRY_WAIT": "-1s"}, "DOWNLOAD_RETRY_WAIT"},
		{"neighbor policy", map[string]string{"ERROR_NEIGHBOR_POLICY": "mean"}, "ERROR_NEIGHBOR_POLICY"},
		{"cache ttl", map[string]string{"STATION_CACHE_TTL": "0s"}, "STATION_CACHE_TTL"},
		{"log compress", map[string]string{"LOG_COMPRESS": "gzip"}, "LOG_COMPRESS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestObsFlags_Any(t *testing.T) {
	assert.False(t, ObsFlags{}.Any())
	assert.True(t, ObsFlags{Radiom: true}.Any())
}
