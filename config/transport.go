package config

import "time"

type Transport struct {
	// BaseURL is the reviews endpoint used by the HTTP page source.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`

	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	UserAgent string        `yaml:"user_agent"`

	// ByteCache keeps raw response bytes in front of the network.
	// If nil, every image miss goes to the network.
	ByteCache *ByteCacheCfg `yaml:"byte_cache" validate:"omitempty"`
}

type ByteCacheCfg struct {
	SizeMB       int           `yaml:"size_mb" validate:"gte=1"`
	LifeWindow   time.Duration `yaml:"life_window" validate:"gt=0"`
	MaxEntrySize int           `yaml:"max_entry_size" validate:"gte=0"`
}

func (cfg *ByteCacheCfg) Enabled() bool {
	return cfg != nil
}
