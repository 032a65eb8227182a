package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Spatial gridding configuration.
	GridCoordinate      string
	GridVariables       []string
	GridBinWidth        float64
	GridMandatoryLevels bool
	GridLevels          []float64
	GridConcurrency     int

	// StorePath is the SQLite file for gridded profiles. Empty disables the store.
	StorePath string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	binWidth, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GRID_BIN_WIDTH", "100"), 64)
	if err != nil || !(binWidth > 0) || math.IsInf(binWidth, 0) {
		return nil, errors.New("invalid GRID_BIN_WIDTH: must be a positive number")
	}

	mandatory, err := strconv.ParseBool(sharedcfg.EnvOrDefault("GRID_MANDATORY_LEVELS", "false"))
	if err != nil {
		return nil, errors.New("invalid GRID_MANDATORY_LEVELS: must be true or false")
	}

	levels, err := parseLevels(sharedcfg.EnvOrDefault("GRID_LEVELS", ""))
	if err != nil {
		return nil, err
	}

	concurrency, err := strconv.Atoi(sharedcfg.EnvOrDefault("GRID_CONCURRENCY", "4"))
	if err != nil || concurrency < 1 {
		return nil, errors.New("invalid GRID_CONCURRENCY: must be a positive integer")
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-soundings"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "gridded-soundings"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "profile-gridder"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		GridCoordinate:      strings.TrimSpace(sharedcfg.EnvOrDefault("GRID_COORDINATE", "alt")),
		GridVariables:       splitList(sharedcfg.EnvOrDefault("GRID_VARIABLES", "temp")),
		GridBinWidth:        binWidth,
		GridMandatoryLevels: mandatory,
		GridLevels:          levels,
		GridConcurrency:     concurrency,

		StorePath: storePath(),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.GridCoordinate == "" {
		return nil, errors.New("GRID_COORDINATE is required")
	}
	if len(cfg.GridVariables) == 0 {
		return nil, errors.New("GRID_VARIABLES is required")
	}

	return cfg, nil
}

// storePath returns STORE_PATH, treating an explicitly empty value as
// "store disabled" rather than "use the default".
func storePath() string {
	if v, ok := os.LookupEnv("STORE_PATH"); ok {
		return strings.TrimSpace(v)
	}
	return "data/gridded.db"
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseLevels parses GRID_LEVELS. An empty value means the standard
// mandatory pressure levels, signalled by a nil slice.
func parseLevels(s string) ([]float64, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, nil
	}
	levels := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid GRID_LEVELS: %q is not a number", p)
		}
		levels = append(levels, v)
	}
	return levels, nil
}
