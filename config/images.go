package config

import "time"

// TransformMode selects what the image pipeline does with fetched bytes
// when the caller did not ask for a particular target size.
type TransformMode string

const (
	// TransformNone decodes the image and caches it as-is.
	TransformNone TransformMode = "none"
	// TransformDownsample scales the image down to the configured default size.
	TransformDownsample TransformMode = "downsample"
	// TransformRecompress re-encodes the image as lossy JPEG to bound cache memory.
	TransformRecompress TransformMode = "recompress"
)

type Images struct {
	// Workers bounds how many fetch+decode jobs run at once.
	Workers int `yaml:"workers" validate:"gte=1"`

	// Rate limits remote fetches per second. Zero disables limiting.
	Rate int `yaml:"rate" validate:"gte=0"`

	// FetchTimeout bounds a single remote fetch including decoding. Zero means no timeout.
	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"gte=0"`

	// DeviceScale multiplies target sizes (points) into pixels.
	DeviceScale float64 `yaml:"device_scale" validate:"gt=0"`

	// MaxSourcePixels rejects sources whose header announces more pixels than this.
	MaxSourcePixels int64 `yaml:"max_source_pixels" validate:"gt=0"`

	// KeyIncludesSize makes the target size part of cache and in-flight identity.
	// Off by default: one source URL owns one cache slot whatever size was requested.
	KeyIncludesSize bool `yaml:"key_includes_size"`

	Transform TransformCfg `yaml:"transform"`
}

type TransformCfg struct {
	Mode TransformMode `yaml:"mode" validate:"oneof=none downsample recompress"`

	// Width and Height are the default downsample target (points), used in TransformDownsample mode.
	Width  float64 `yaml:"width" validate:"required_if=Mode downsample,gte=0"`
	Height float64 `yaml:"height" validate:"required_if=Mode downsample,gte=0"`

	// Quality is the JPEG quality used in TransformRecompress mode.
	Quality int `yaml:"quality" validate:"gte=0,lte=100"`
}
