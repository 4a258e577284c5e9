package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/couchcryptid/wrf-obsprep/internal/catalog"
	"github.com/couchcryptid/wrf-obsprep/internal/domain"
	"github.com/couchcryptid/wrf-obsprep/internal/grid"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Radar archive source kinds accepted by RADAR_SOURCE.
const (
	SourceLocal = "local"
	SourceHTTP  = "http"
	SourceS3    = "s3"
	SourceGCS   = "gcs"
)

// ObsFlags enables observation types individually.
type ObsFlags struct {
	Radar  bool
	METAR  bool
	Sound  bool
	Synop  bool
	Radiom bool
}

// Any reports whether at least one observation type is enabled.
func (f ObsFlags) Any() bool {
	return f.Radar || f.METAR || f.Sound || f.Synop || f.Radiom
}

// Config holds all run settings, populated from environment variables.
type Config struct {
	AnalysisTime time.Time
	AssimWindow  time.Duration
	DataDir      string
	OutputDir    string
	Obs          ObsFlags

	// Radar archive.
	RadarSource       string
	RadarSourceURL    string
	RadarBucket       string
	RadarPrefix       string
	RadarRegion       string
	RadarFilePattern  string
	DownloadWorkers   int
	DownloadAttempts  int
	DownloadRetryWait time.Duration
	NeighborPolicy    grid.NeighborPolicy
	SnapshotDir       string

	// Surface observations.
	StationDirectory string
	StationCacheSize int
	StationCacheTTL  time.Duration
	SynopDecoder     string

	HTTPAddr     string
	KafkaBrokers []string
	KafkaTopic   string

	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	ShutdownTimeout time.Duration
}

// Window is the analysis window derived from ANALYSIS_TIME and ASSIM_WINDOW.
func (c *Config) Window() domain.AnalysisWindow {
	return domain.NewAnalysisWindow(c.AnalysisTime, c.AssimWindow)
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	analysisTime := domain.DefaultAnalysisTime()
	if s := os.Getenv("ANALYSIS_TIME"); s != "" {
		if analysisTime, err = domain.ParseAnalysisTime(s); err != nil {
			return nil, fmt.Errorf("invalid ANALYSIS_TIME: %w", err)
		}
	}

	obs, err := parseObsFlags()
	if err != nil {
		return nil, err
	}

	policy, err := grid.ParseNeighborPolicy(sharedcfg.EnvOrDefault("ERROR_NEIGHBOR_POLICY", string(grid.NeighborSentinel)))
	if err != nil {
		return nil, fmt.Errorf("invalid ERROR_NEIGHBOR_POLICY: %w", err)
	}

	dataDir := sharedcfg.EnvOrDefault("DATA_DIR", "data")

	cfg := &Config{
		AnalysisTime: analysisTime,
		DataDir:      dataDir,
		OutputDir:    sharedcfg.EnvOrDefault("OUTPUT_DIR", "out"),
		Obs:          obs,

		RadarSource:      sharedcfg.EnvOrDefault("RADAR_SOURCE", SourceLocal),
		RadarSourceURL:   sharedcfg.EnvOrDefault("RADAR_SOURCE_URL", filepath.Join(dataDir, "radar", "archive")),
		RadarBucket:      os.Getenv("RADAR_BUCKET"),
		RadarPrefix:      os.Getenv("RADAR_PREFIX"),
		RadarRegion:      sharedcfg.EnvOrDefault("RADAR_REGION", "us-east-1"),
		RadarFilePattern: sharedcfg.EnvOrDefault("RADAR_FILE_PATTERN", catalog.DefaultPattern),
		NeighborPolicy:   policy,
		SnapshotDir:      os.Getenv("SNAPSHOT_DIR"),

		StationDirectory: sharedcfg.EnvOrDefault("STATION_DIRECTORY", filepath.Join(dataDir, "nsd_cccc.txt")),
		SynopDecoder:     sharedcfg.EnvOrDefault("SYNOP_DECODER", "metaf2xml.pl"),

		HTTPAddr:   os.Getenv("HTTP_ADDR"),
		KafkaTopic: sharedcfg.EnvOrDefault("KAFKA_TOPIC", "obsprep-runs"),

		LogLevel:  sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		LogFile:   os.Getenv("LOG_FILE"),

		ShutdownTimeout: shutdownTimeout,
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	durations := []struct {
		env  string
		def  string
		dest *time.Duration
	}{
		{"ASSIM_WINDOW", "6h", &cfg.AssimWindow},
		{"DOWNLOAD_RETRY_WAIT", "30s", &cfg.DownloadRetryWait},
		{"STATION_CACHE_TTL", "1h", &cfg.StationCacheTTL},
	}
	for _, d := range durations {
		if *d.dest, err = parseDuration(d.env, d.def); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		env  string
		def  int
		min  int
		dest *int
	}{
		{"DOWNLOAD_WORKERS", runtime.NumCPU(), 1, &cfg.DownloadWorkers},
		{"DOWNLOAD_ATTEMPTS", 3, 1, &cfg.DownloadAttempts},
		{"STATION_CACHE_SIZE", 1000, 1, &cfg.StationCacheSize},
		{"LOG_MAX_SIZE_MB", 100, 1, &cfg.LogMaxSizeMB},
		{"LOG_MAX_BACKUPS", 3, 0, &cfg.LogMaxBackups},
		{"LOG_MAX_AGE_DAYS", 28, 0, &cfg.LogMaxAgeDays},
	}
	for _, n := range ints {
		if *n.dest, err = parseInt(n.env, n.def, n.min); err != nil {
			return nil, err
		}
	}

	if cfg.LogCompress, err = parseBool("LOG_COMPRESS", false); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.AssimWindow < 2*time.Hour {
		return errors.New("ASSIM_WINDOW must be at least 2h so the half-window spans a whole hour")
	}
	switch c.RadarSource {
	case SourceLocal, SourceHTTP:
		if c.RadarSourceURL == "" {
			return errors.New("RADAR_SOURCE_URL is required for local and http sources")
		}
	case SourceS3, SourceGCS:
		if c.RadarBucket == "" {
			return fmt.Errorf("RADAR_BUCKET is required when RADAR_SOURCE is %s", c.RadarSource)
		}
	default:
		return fmt.Errorf("RADAR_SOURCE must be one of local, http, s3, gcs, got %q", c.RadarSource)
	}
	if _, err := catalog.NewNameParser(c.RadarFilePattern); err != nil {
		return fmt.Errorf("invalid RADAR_FILE_PATTERN: %w", err)
	}
	if !c.Obs.Any() {
		return errors.New("OBS_RADAR, OBS_METAR, OBS_SOUND, OBS_SYNOP and OBS_RADIOM are all false")
	}
	return nil
}

func parseObsFlags() (ObsFlags, error) {
	var f ObsFlags
	flags := []struct {
		env  string
		dest *bool
	}{
		{"OBS_RADAR", &f.Radar},
		{"OBS_METAR", &f.METAR},
		{"OBS_SOUND", &f.Sound},
		{"OBS_SYNOP", &f.Synop},
		{"OBS_RADIOM", &f.Radiom},
	}
	for _, fl := range flags {
		v, err := parseBool(fl.env, true)
		if err != nil {
			return ObsFlags{}, err
		}
		*fl.dest = v
	}
	return f, nil
}

func parseDuration(env, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(env, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", env)
	}
	return d, nil
}

func parseInt(env string, def, minimum int) (int, error) {
	s := os.Getenv(env)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s: must be an integer >= %d", env, minimum)
	}
	return n, nil
}

func parseBool(env string, def bool) (bool, error) {
	s := os.Getenv(env)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q is not a boolean", env, s)
	}
	return b, nil
}
