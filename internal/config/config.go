package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/quake-monitor-service/internal/domain"
)

// Preference backends.
const (
	PrefsBackendFile  = "file"
	PrefsBackendRedis = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Feed polling.
	FeedBaseURL     string
	FeedTimeout     time.Duration
	RefreshInterval time.Duration
	TimeRange       domain.TimeRange

	// Notifications.
	NotificationPermission string
	PrefsBackend           string
	PrefsPath              string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	RedisKeyPrefix         string

	// Kafka alert fan-out, disabled when no brokers are configured.
	KafkaBrokers    []string
	KafkaAlertTopic string

	// Mapbox reverse geocoding for events the feed leaves unlabelled.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// KafkaEnabled reports whether alerts are published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	feedTimeout, err := parsePositiveDuration("FEED_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	timeRange, err := domain.ParseTimeRange(sharedcfg.EnvOrDefault("TIME_RANGE", string(domain.RangeDay)))
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_RANGE: %w", err)
	}

	redisDB, err := strconv.Atoi(sharedcfg.EnvOrDefault("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		return nil, errors.New("invalid REDIS_DB")
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FeedBaseURL:     strings.TrimRight(sharedcfg.EnvOrDefault("FEED_BASE_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0"), "/"),
		FeedTimeout:     feedTimeout,
		RefreshInterval: refreshInterval,
		TimeRange:       timeRange,

		NotificationPermission: strings.ToLower(sharedcfg.EnvOrDefault("NOTIFICATION_PERMISSION", "default")),
		PrefsBackend:           strings.ToLower(sharedcfg.EnvOrDefault("PREFS_BACKEND", PrefsBackendFile)),
		PrefsPath:              sharedcfg.EnvOrDefault("PREFS_PATH", "quakemon-prefs.json"),
		RedisAddr:              sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                redisDB,
		RedisKeyPrefix:         sharedcfg.EnvOrDefault("REDIS_KEY_PREFIX", "quakemon"),

		KafkaBrokers:    parseList(os.Getenv("KAFKA_BROKERS")),
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "quake-alerts"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.FeedBaseURL == "" {
		return nil, errors.New("FEED_BASE_URL is required")
	}
	switch cfg.NotificationPermission {
	case "default", "granted", "denied":
	default:
		return nil, fmt.Errorf("invalid NOTIFICATION_PERMISSION %q", cfg.NotificationPermission)
	}
	switch cfg.PrefsBackend {
	case PrefsBackendFile:
		if cfg.PrefsPath == "" {
			return nil, errors.New("PREFS_PATH is required for the file backend")
		}
	case PrefsBackendRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("REDIS_ADDR is required for the redis backend")
		}
	default:
		return nil, fmt.Errorf("invalid PREFS_BACKEND %q", cfg.PrefsBackend)
	}
	if cfg.KafkaEnabled() && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
