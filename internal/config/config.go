package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/treemap/internal/storage"
	"github.com/eugenenazirov/treemap/internal/treemap"
)

const (
	defaultPort           = "8080"
	defaultMaxWeights     = 100_000
	defaultMaxBatchSize   = 64
	defaultBatchWorkers   = 4
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > config file > Environment variables > Defaults
type Config struct {
	Port                 string
	DefaultBounds        treemap.Rect
	MaxWeights           int
	MaxBatchSize         int
	BatchWorkers         int
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// fileConfig represents the configuration file structure shared by YAML and TOML.
type fileConfig struct {
	Port                 string        `yaml:"port" toml:"port"`
	DefaultBounds        string        `yaml:"default_bounds" toml:"default_bounds"`
	MaxWeights           int           `yaml:"max_weights" toml:"max_weights"`
	MaxBatchSize         int           `yaml:"max_batch_size" toml:"max_batch_size"`
	BatchWorkers         int           `yaml:"batch_workers" toml:"batch_workers"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period" toml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout" toml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout" toml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging" toml:"enable_request_logging"`
	RateLimit            fileRateLimit `yaml:"rate_limit" toml:"rate_limit"`
}

// fileRateLimit represents the rate limit section of the configuration file.
type fileRateLimit struct {
	RPS   *float64 `yaml:"rps" toml:"rps"`
	Burst *int     `yaml:"burst" toml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	BoundsStr      *string
	MaxWeights     *int
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > config file > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables
	applyEnvConfig(&cfg)

	// Load from config file if specified (overrides env)
	if overrides != nil && overrides.ConfigFile != "" {
		fileCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load config file: %w", err)
		}
		if err := applyFileConfig(&cfg, fileCfg); err != nil {
			return Config{}, err
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		DefaultBounds:        storage.DefaultBounds(),
		MaxWeights:           defaultMaxWeights,
		MaxBatchSize:         defaultMaxBatchSize,
		BatchWorkers:         defaultBatchWorkers,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML or TOML file, chosen by extension.
func loadFromFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parse TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	}

	return &fileCfg, nil
}

// applyFileConfig applies file configuration to the Config struct.
func applyFileConfig(cfg *Config, fileCfg *fileConfig) error {
	if fileCfg.Port != "" {
		cfg.Port = fileCfg.Port
	}

	if fileCfg.DefaultBounds != "" {
		bounds, err := ParseBounds(fileCfg.DefaultBounds)
		if err != nil {
			return fmt.Errorf("parse default_bounds: %w", err)
		}
		cfg.DefaultBounds = bounds
	}

	if fileCfg.MaxWeights > 0 {
		cfg.MaxWeights = fileCfg.MaxWeights
	}
	if fileCfg.MaxBatchSize > 0 {
		cfg.MaxBatchSize = fileCfg.MaxBatchSize
	}
	if fileCfg.BatchWorkers > 0 {
		cfg.BatchWorkers = fileCfg.BatchWorkers
	}

	durations := []struct {
		raw    string
		target *time.Duration
	}{
		{fileCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{fileCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{fileCfg.WriteTimeout, &cfg.WriteTimeout},
		{fileCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		if parsed, err := time.ParseDuration(d.raw); err == nil {
			*d.target = parsed
		}
	}

	if fileCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *fileCfg.EnableRequestLogging
	}

	if fileCfg.RateLimit.RPS != nil && *fileCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = *fileCfg.RateLimit.RPS
	}
	if fileCfg.RateLimit.Burst != nil && *fileCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = *fileCfg.RateLimit.Burst
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if raw := strings.TrimSpace(os.Getenv("DEFAULT_BOUNDS")); raw != "" {
		if bounds, err := ParseBounds(raw); err == nil {
			cfg.DefaultBounds = bounds
		}
	}

	if raw := strings.TrimSpace(os.Getenv("MAX_WEIGHTS")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxWeights = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("BATCH_WORKERS")); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.BatchWorkers = value
		}
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.BoundsStr != nil && *overrides.BoundsStr != "" {
		bounds, err := ParseBounds(*overrides.BoundsStr)
		if err != nil {
			return fmt.Errorf("parse bounds: %w", err)
		}
		cfg.DefaultBounds = bounds
	}

	if overrides.MaxWeights != nil && *overrides.MaxWeights > 0 {
		cfg.MaxWeights = *overrides.MaxWeights
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.MaxWeights <= 0 {
		return fmt.Errorf("max weights must be positive")
	}
	if cfg.MaxBatchSize <= 0 || cfg.BatchWorkers <= 0 {
		return fmt.Errorf("batch size and workers must be positive")
	}
	if err := storage.ValidateBounds(cfg.DefaultBounds); err != nil {
		return fmt.Errorf("default bounds: %w", err)
	}
	return nil
}

// ParseBounds parses "x,y,width,height" or "width,height" into a rectangle.
// Surrounding whitespace around each component is ignored.
func ParseBounds(raw string) (treemap.Rect, error) {
	parts := strings.Split(raw, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		value, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return treemap.Rect{}, fmt.Errorf("invalid number %q", part)
		}
		values = append(values, value)
	}

	var r treemap.Rect
	switch len(values) {
	case 2:
		r = treemap.Rect{W: values[0], H: values[1]}
	case 4:
		r = treemap.Rect{X: values[0], Y: values[1], W: values[2], H: values[3]}
	default:
		return treemap.Rect{}, fmt.Errorf("expected 2 or 4 values, got %d", len(values))
	}

	if err := storage.ValidateBounds(r); err != nil {
		return treemap.Rect{}, err
	}
	return r, nil
}
