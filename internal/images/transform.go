package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/Borislavv/go-ash-feed/config"
	"github.com/Borislavv/go-ash-feed/model"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// transformer turns fetched bytes into a cacheable Image according to the configured mode.
type transformer struct {
	mode        config.TransformMode
	defaultSize model.Size
	quality     int
	scale       float64
	maxPixels   int64
}

func newTransformer(cfg *config.Images) transformer {
	return transformer{
		mode:        cfg.Transform.Mode,
		defaultSize: model.Size{Width: cfg.Transform.Width, Height: cfg.Transform.Height},
		quality:     cfg.Transform.Quality,
		scale:       cfg.DeviceScale,
		maxPixels:   cfg.MaxSourcePixels,
	}
}

// apply decodes data and shapes it. A non-zero target always downsamples,
// whatever the configured mode.
func (t transformer) apply(key string, data []byte, target *model.Size) (*Image, error) {
	header, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if px := int64(header.Width) * int64(header.Height); px > t.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrSourceTooBig, header.Width, header.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	switch {
	case target != nil && !target.IsZero():
		return newDecodedImage(key, format, downsample(src, target.LongestEdgePx(t.scale))), nil
	case t.mode == config.TransformDownsample:
		return newDecodedImage(key, format, downsample(src, t.defaultSize.LongestEdgePx(t.scale))), nil
	case t.mode == config.TransformRecompress:
		var buf bytes.Buffer
		if err = jpeg.Encode(&buf, src, &jpeg.Options{Quality: t.quality}); err != nil {
			return nil, err
		}
		b := src.Bounds()
		return newEncodedImage(key, format, b.Dx(), b.Dy(), buf.Bytes()), nil
	default:
		return newDecodedImage(key, format, src), nil
	}
}

// downsample scales src so that its longest edge is at most maxEdge pixels.
// Aspect ratio is kept and images are never upscaled.
func downsample(src image.Image, maxEdge int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if longest <= maxEdge {
		return src
	}

	ratio := float64(maxEdge) / float64(longest)
	nw := min(maxEdge, max(1, int(math.Round(float64(w)*ratio))))
	nh := min(maxEdge, max(1, int(math.Round(float64(h)*ratio))))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
