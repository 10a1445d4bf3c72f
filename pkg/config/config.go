// Package config loads the portal configuration from a YAML file, optional
// .env files and VRX_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/exploopio/vrx-portal/pkg/compress"
	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/sections/settings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VRX_"

// Config is the full portal configuration.
type Config struct {
	Server    ServerConfig      `yaml:"server"`
	Log       LogConfig         `yaml:"log"`
	Latency   LatencyConfig     `yaml:"latency"`
	Audit     AuditConfig       `yaml:"audit"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
	Health    HealthConfig      `yaml:"health"`
	Settings  settings.Settings `yaml:"settings"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Compression     bool          `yaml:"compression"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// LatencyConfig scales the simulated backend delays. 0 disables them.
type LatencyConfig struct {
	Scale float64 `yaml:"scale"`
}

// AuditConfig configures the audit trail sinks. Empty paths disable the
// matching sink.
type AuditConfig struct {
	Enabled       bool          `yaml:"enabled"`
	File          string        `yaml:"file"`
	MaxSizeMB     int           `yaml:"max_size_mb"`
	Compression   string        `yaml:"compression"`
	Journal       string        `yaml:"journal"`
	BufferSize    int           `yaml:"buffer_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// RateLimitConfig limits mutating API calls per client address.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// HealthConfig holds the health check thresholds.
type HealthConfig struct {
	MinFreeDiskPercent     float64 `yaml:"min_free_disk_percent"`
	MaxHeapMB              uint64  `yaml:"max_heap_mb"`
	MaxSystemMemoryPercent float64 `yaml:"max_system_memory_percent"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Compression:     true,
		},
		Log:     LogConfig{Level: "info"},
		Latency: LatencyConfig{Scale: 1},
		Audit: AuditConfig{
			Enabled:       true,
			File:          "data/audit.log",
			MaxSizeMB:     50,
			Compression:   string(compress.AlgorithmZSTD),
			Journal:       "data/audit.db",
			BufferSize:    100,
			FlushInterval: 5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Health: HealthConfig{
			MinFreeDiskPercent:     5,
			MaxHeapMB:              512,
			MaxSystemMemoryPercent: 95,
		},
		Settings: settings.Defaults(),
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any, with ${VAR} references expanded), then VRX_* variables. .env files
// in the working directory are loaded first so they can feed both.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env then .env.local, both optional. Variables already
// set in the process win over .env; .env.local overrides both.
func loadEnvFiles() error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Overload(".env.local"); err != nil {
			return fmt.Errorf("failed to load .env.local: %w", err)
		}
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays VRX_* variables. Malformed numbers and booleans are
// reported rather than ignored.
func applyEnv(cfg *Config) error {
	var errs []string
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, EnvPrefix+name)
				return
			}
			*dst = b
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, EnvPrefix+name)
				return
			}
			*dst = f
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, EnvPrefix+name)
				return
			}
			*dst = n
		}
	}

	str("LISTEN", &cfg.Server.Listen)
	boolean("COMPRESSION", &cfg.Server.Compression)
	str("LOG_LEVEL", &cfg.Log.Level)
	boolean("LOG_JSON", &cfg.Log.JSON)
	float("LATENCY_SCALE", &cfg.Latency.Scale)
	boolean("AUDIT_ENABLED", &cfg.Audit.Enabled)
	str("AUDIT_FILE", &cfg.Audit.File)
	str("AUDIT_JOURNAL", &cfg.Audit.Journal)
	boolean("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	float("RATE_LIMIT_RPS", &cfg.RateLimit.RequestsPerSecond)
	integer("RATE_LIMIT_BURST", &cfg.RateLimit.Burst)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment overrides: %s", strings.Join(errs, ", "))
	}
	return nil
}

// Validate checks every section of the configuration at once.
func (c *Config) Validate() error {
	v := core.NewValidator()
	v.Required("server.listen", c.Server.Listen)
	v.MinDuration("server.read_timeout", c.Server.ReadTimeout, time.Second)
	v.MinDuration("server.write_timeout", c.Server.WriteTimeout, time.Second)
	v.MinDuration("server.shutdown_timeout", c.Server.ShutdownTimeout, 0)
	v.OneOf("log.level", strings.ToLower(c.Log.Level), []string{"debug", "trace", "info", "warn", "warning", "error", "silent", "off", "none"})
	v.Check("latency.scale", c.Latency.Scale >= 0, "must not be negative")

	if c.Audit.Enabled {
		v.Check("audit", c.Audit.File != "" || c.Audit.Journal != "", "enabled audit needs a file or a journal")
		v.Min("audit.max_size_mb", c.Audit.MaxSizeMB, 0)
		_, err := compress.ParseAlgorithm(c.Audit.Compression)
		v.Check("audit.compression", err == nil, "must be one of: zstd, gzip, none")
		v.Min("audit.buffer_size", c.Audit.BufferSize, 1)
		v.MinDuration("audit.flush_interval", c.Audit.FlushInterval, 100*time.Millisecond)
	}
	if c.RateLimit.Enabled {
		v.Check("rate_limit.requests_per_second", c.RateLimit.RequestsPerSecond > 0, "must be positive")
		v.Min("rate_limit.burst", c.RateLimit.Burst, 1)
	}
	v.Check("health.min_free_disk_percent", c.Health.MinFreeDiskPercent >= 0 && c.Health.MinFreeDiskPercent <= 100, "must be between 0 and 100")
	v.Check("health.max_system_memory_percent", c.Health.MaxSystemMemoryPercent > 0 && c.Health.MaxSystemMemoryPercent <= 100, "must be between 0 and 100")
	return v.Validate()
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() core.LogLevel {
	return core.ParseLogLevel(c.Log.Level)
}
