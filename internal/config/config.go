package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Collection names known to the catalog.
const (
	Resources = "resources"
	Ratings   = "ratings"
	Feedback  = "feedback"
)

// Backend kinds accepted by store.Open.
const (
	BackendLocal    = "local"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendS3       = "s3"
	BackendGCS      = "gcs"
)

// Config holds all runtime configuration for the catalog service.
type Config struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Backend selects the storage medium; DataDir is the root for "local".
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`
	DSN     string `yaml:"dsn"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`

	// Collections maps a collection name to its path or key in the backend.
	Collections map[string]string `yaml:"collections"`

	RateLimitRPS   int `yaml:"rate_limit_rps"`
	RateLimitBurst int `yaml:"rate_limit_burst"`

	MinFreeBytes    int64         `yaml:"min_free_bytes"`
	TmpTTL          time.Duration `yaml:"tmp_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns the configuration used when neither a file nor the
// environment overrides a value.
func Default() *Config {
	return &Config{
		Host:     "127.0.0.1",
		Port:     "5002",
		LogLevel: "info",
		Backend:  BackendLocal,
		DataDir:  "data",
		Collections: map[string]string{
			Resources: "resources.json",
			Ratings:   "ratings.json",
			Feedback:  "feedback.json",
		},
		RateLimitRPS:    50,
		RateLimitBurst:  100,
		MinFreeBytes:    64 << 20,
		TmpTTL:          time.Hour,
		CleanupInterval: 10 * time.Minute,
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CATALOG_CONFIG (if any) and CATALOG_* environment variables, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CATALOG_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes the YAML file over c, so keys present in the file win
// even when they hold a zero value ("rate_limit_rps: 0" disables limiting).
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	if c.Collections == nil {
		c.Collections = map[string]string{}
	}
	for name, path := range Default().Collections {
		if _, ok := c.Collections[name]; !ok {
			c.Collections[name] = path
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Host = getEnv("CATALOG_HOST", c.Host)
	c.Port = getEnv("CATALOG_PORT", c.Port)
	c.LogLevel = getEnv("CATALOG_LOG_LEVEL", c.LogLevel)
	c.Backend = getEnv("CATALOG_BACKEND", c.Backend)
	c.DataDir = getEnv("CATALOG_DATA_DIR", c.DataDir)
	c.DSN = getEnv("CATALOG_DSN", c.DSN)
	c.RedisAddr = getEnv("CATALOG_REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("CATALOG_REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("CATALOG_REDIS_DB", c.RedisDB)
	c.Bucket = getEnv("CATALOG_BUCKET", c.Bucket)
	c.Prefix = getEnv("CATALOG_PREFIX", c.Prefix)
	c.Region = getEnv("CATALOG_REGION", c.Region)
	c.Endpoint = getEnv("CATALOG_ENDPOINT", c.Endpoint)
	c.RateLimitRPS = getEnvInt("CATALOG_RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = getEnvInt("CATALOG_RATE_LIMIT_BURST", c.RateLimitBurst)
	c.OTLPEndpoint = getEnv("CATALOG_OTLP_ENDPOINT", c.OTLPEndpoint)

	c.Collections[Resources] = getEnv("CATALOG_RESOURCES_PATH", c.Collections[Resources])
	c.Collections[Ratings] = getEnv("CATALOG_RATINGS_PATH", c.Collections[Ratings])
	c.Collections[Feedback] = getEnv("CATALOG_FEEDBACK_PATH", c.Collections[Feedback])
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal:
		if c.DataDir == "" {
			return fmt.Errorf("config: data_dir is required for the local backend")
		}
	case BackendSQLite, BackendPostgres:
		if c.DSN == "" {
			return fmt.Errorf("config: dsn is required for the %s backend", c.Backend)
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: redis_addr is required for the redis backend")
		}
	case BackendS3, BackendGCS:
		if c.Bucket == "" {
			return fmt.Errorf("config: bucket is required for the %s backend", c.Backend)
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	for _, name := range []string{Resources, Ratings, Feedback} {
		if strings.TrimSpace(c.Collections[name]) == "" {
			return fmt.Errorf("config: no path configured for collection %q", name)
		}
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
