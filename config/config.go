package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config groups configuration of all subsystems.
type Config struct {
	Cache     Cache     `yaml:"cache"`
	Images    Images    `yaml:"images"`
	Feed      Feed      `yaml:"feed"`
	Transport Transport `yaml:"transport"`
}

// Default returns a configuration which works without any YAML:
// an unbounded cache with the classic 10 minute TTL and a small worker pool.
func Default() *Config {
	cfg := &Config{}
	cfg.AdjustConfig()
	return cfg
}

// AdjustConfig fills zero values with defaults and computes virtual fields.
func (cfg *Config) AdjustConfig() {
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = DefaultTTL
	}
	cfg.Cache.DB.Shards = nextPow2(cfg.Cache.DB.Shards)
	if cfg.Cache.DB.TelemetryLogsInterval <= 0 {
		cfg.Cache.DB.TelemetryLogsInterval = 5 * time.Second
	}
	if cfg.Cache.Eviction.Enabled() {
		if cfg.Cache.Eviction.LRUMode == "" {
			cfg.Cache.Eviction.LRUMode = LRUModeListing
		}
		cfg.Cache.Eviction.IsListing = cfg.Cache.Eviction.LRUMode == LRUModeListing
		cfg.Cache.Eviction.SoftMemoryLimitBytes = int64(float64(cfg.Cache.DB.SizeBytes) * cfg.Cache.Eviction.SoftLimitCoefficient)
	}

	if cfg.Images.Workers <= 0 {
		cfg.Images.Workers = 4
	}
	if cfg.Images.DeviceScale <= 0 {
		cfg.Images.DeviceScale = 1
	}
	if cfg.Images.MaxSourcePixels <= 0 {
		cfg.Images.MaxSourcePixels = 64 << 20 // 8192x8192
	}
	if cfg.Images.Transform.Mode == "" {
		cfg.Images.Transform.Mode = TransformNone
	}
	if cfg.Images.Transform.Mode == TransformRecompress && cfg.Images.Transform.Quality == 0 {
		cfg.Images.Transform.Quality = 80
	}

	if cfg.Feed.CollapsedLines <= 0 {
		cfg.Feed.CollapsedLines = DefaultCollapsedLines
	}
	if cfg.Feed.ScreensToPrefetch <= 0 {
		cfg.Feed.ScreensToPrefetch = DefaultScreensToPrefetch
	}
}

// Validate checks the adjusted configuration against its struct tags.
func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	cfg := &Config{}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	cfg.AdjustConfig()

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func nextPow2(n int) int {
	if n <= 0 {
		return 64
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
