package config

import "time"

const (
	DefaultCollapsedLines    = 3
	DefaultScreensToPrefetch = 2.5
)

type Feed struct {
	// PageTimeout bounds one page request. Zero means no timeout.
	PageTimeout time.Duration `yaml:"page_timeout" validate:"gte=0"`

	// CollapsedLines is the number of text lines a fresh item shows before "show more".
	CollapsedLines int `yaml:"collapsed_lines" validate:"gte=1"`

	// ScreensToPrefetch is how many viewport heights before the end of content
	// the next page should be requested.
	ScreensToPrefetch float64 `yaml:"screens_to_prefetch" validate:"gt=0"`
}
