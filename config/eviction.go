package config

// LRUMode defines the LRU eviction strategy.
type LRUMode string

const (
	// LRUModeSampling evicts entries using Redis-like sampling for victim selection.
	LRUModeSampling LRUMode = "sampling"

	// LRUModeListing evicts entries by iterating over the LRU list directly.
	LRUModeListing LRUMode = "listing"
)

type EvictionCfg struct {
	// LRUMode defines the LRU eviction mode.
	// Supported values:
	//   - "sampling": eviction is based on sampling a subset of entries
	//   - "listing":  eviction iterates over the LRU list directly
	LRUMode LRUMode `yaml:"mode" validate:"oneof=sampling listing"`

	// SoftLimitCoefficient defines the soft memory usage threshold as a fraction of DB.SizeBytes.
	// When memory usage exceeds this limit the evictor starts freeing entries in background.
	//
	// Example:
	//   SoftLimitCoefficient: 0.80 // start evicting after reaching 80% of DB.SizeBytes
	SoftLimitCoefficient float64 `yaml:"soft_limit_coefficient" validate:"gt=0,lte=1"`

	// SoftMemoryLimitBytes is derived during AdjustConfig from DB.SizeBytes and SoftLimitCoefficient.
	// It is not read from YAML.
	SoftMemoryLimitBytes int64 `yaml:"-"` // virtual: computed during init (bytes)

	// CallsPerSec defines how many eviction scan cycles the evictor performs per second.
	CallsPerSec int64 `yaml:"calls_per_sec" validate:"gte=0"`

	// BackoffSpinsPerCall defines how many shards are probed during a single eviction call.
	BackoffSpinsPerCall int64 `yaml:"backoff_spins_per_call" validate:"gte=0"`

	// IsListing is derived from LRUMode during AdjustConfig.
	IsListing bool `yaml:"-"` // virtual: computed during init
}

func (cfg *EvictionCfg) Enabled() bool {
	return cfg != nil
}
