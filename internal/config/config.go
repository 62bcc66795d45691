package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // DASHBOARD_TIMEZONE must resolve in minimal containers

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Report sources selectable via REPORT_SOURCE.
const (
	SourceHTTP     = "http"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	// Report source configuration.
	ReportSource    string
	ReportsURL      string
	ReportsToken    string
	ReportsFile     string
	UpstreamTimeout time.Duration
	DatabaseURL     string
	DatabaseMigrate bool

	// Dashboard presentation. FixedNow pins the dashboard clock when set.
	Location     *time.Location
	FixedNow     time.Time
	MapCenterLat float64
	MapCenterLon float64
	MapZoom      int
	TileURL      string

	// Kafka ingestion and status events, feature-flagged via KAFKA_ENABLED.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaReportTopic   string
	KafkaStatusTopic   string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is read first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	upstreamTimeout, err := parsePositiveDuration("UPSTREAM_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
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

	loc, err := time.LoadLocation(sharedcfg.EnvOrDefault("DASHBOARD_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid DASHBOARD_TIMEZONE: %w", err)
	}

	var fixedNow time.Time
	if v := os.Getenv("DASHBOARD_FIXED_NOW"); v != "" {
		fixedNow, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid DASHBOARD_FIXED_NOW: %w", err)
		}
	}

	centerLat, err := parseFloat("MAP_CENTER_LAT", 22.3039, -90, 90)
	if err != nil {
		return nil, err
	}
	centerLon, err := parseFloat("MAP_CENTER_LON", 70.8022, -180, 180)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		ReportSource:    strings.ToLower(sharedcfg.EnvOrDefault("REPORT_SOURCE", SourceFile)),
		ReportsURL:      os.Getenv("REPORTS_URL"),
		ReportsToken:    os.Getenv("REPORTS_TOKEN"),
		ReportsFile:     sharedcfg.EnvOrDefault("REPORTS_FILE", "data/mock/crime_reports.json"),
		UpstreamTimeout: upstreamTimeout,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DatabaseMigrate: os.Getenv("DATABASE_MIGRATE") == "true",

		Location:     loc,
		FixedNow:     fixedNow,
		MapCenterLat: centerLat,
		MapCenterLon: centerLon,
		MapZoom:      parseIntOrDefault("MAP_ZOOM", 14),
		TileURL:      sharedcfg.EnvOrDefault("MAP_TILE_URL", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"),

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaReportTopic:   sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "crime-reports"),
		KafkaStatusTopic:   sharedcfg.EnvOrDefault("KAFKA_STATUS_TOPIC", "crime-report-status"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "crime-watch"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseIntOrDefault("MAPBOX_CACHE_SIZE", 1000),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.ReportSource {
	case SourceHTTP:
		if c.ReportsURL == "" {
			return errors.New("REPORT_SOURCE is http but REPORTS_URL is not set")
		}
	case SourceFile:
		if c.ReportsFile == "" {
			return errors.New("REPORT_SOURCE is file but REPORTS_FILE is not set")
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return errors.New("REPORT_SOURCE is postgres but DATABASE_URL is not set")
		}
	default:
		return fmt.Errorf("invalid REPORT_SOURCE %q: want http, file or postgres", c.ReportSource)
	}

	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if c.KafkaReportTopic == "" {
			return errors.New("KAFKA_REPORT_TOPIC is required")
		}
		if c.KafkaStatusTopic == "" {
			return errors.New("KAFKA_STATUS_TOPIC is required")
		}
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, def, lo, hi float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseIntOrDefault(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
