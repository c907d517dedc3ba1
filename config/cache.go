package config

import "time"

// DefaultTTL mirrors the entry lifetime the reviews screen has always used.
const DefaultTTL = 600 * time.Second

// Cache configures the expiring cache and its backing store.
type Cache struct {
	// TTL is the fixed lifetime of every entry, counted from its insertion.
	// It is not per-entry: re-inserting a key restarts the countdown.
	TTL time.Duration `yaml:"ttl" validate:"gt=0"`

	DB DBCfg `yaml:"db"`

	// Eviction configures the background soft-limit evictor.
	// If nil, only the hard bounds of DB (if any) are enforced, synchronously on insert.
	Eviction *EvictionCfg `yaml:"eviction" validate:"omitempty"`
}

type DBCfg struct {
	// SizeBytes is the hard memory bound of the store. Zero means unbounded:
	// the cache then relies on the host for memory pressure handling.
	SizeBytes int64 `yaml:"size" validate:"gte=0"`

	// MaxEntries is the hard entry-count bound. Zero means unbounded.
	MaxEntries int64 `yaml:"max_entries" validate:"gte=0"`

	// Shards is rounded up to a power of two during AdjustConfig.
	Shards int `yaml:"shards" validate:"gte=1,lte=65536"`

	IsTelemetryLogsEnabled bool          `yaml:"stat_logs_enabled"`
	TelemetryLogsInterval  time.Duration `yaml:"stat_logs_interval"`

	// CacheTimeEnabled switches the default time source to a coarse ticking clock
	// which is cheaper to read on hot paths.
	CacheTimeEnabled bool `yaml:"cache_time_enabled"`
}

// Bounded reports whether any hard bound is configured.
func (cfg *DBCfg) Bounded() bool {
	return cfg.SizeBytes > 0 || cfg.MaxEntries > 0
}
