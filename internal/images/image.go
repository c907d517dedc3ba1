package images

import (
	"bytes"
	"image"
	"image/jpeg"
	"sync"
	"unsafe"
)

// Image is the cacheable artifact produced by the pipeline.
// It holds either a decoded bitmap or, in recompress mode, a JPEG which is decoded on first use.
type Image struct {
	Key    string
	Width  int
	Height int
	// Format is the format of the source bytes as reported by the decoder.
	Format string

	bitmap  image.Image
	encoded []byte

	// decoded and err are written once and read only after once.Do returned.
	once    sync.Once
	decoded image.Image
	err     error
}

func newDecodedImage(key, format string, img image.Image) *Image {
	b := img.Bounds()
	return &Image{Key: key, Format: format, Width: b.Dx(), Height: b.Dy(), bitmap: img}
}

func newEncodedImage(key, format string, width, height int, data []byte) *Image {
	return &Image{Key: key, Format: format, Width: width, Height: height, encoded: data}
}

// Bitmap returns the decoded image, decoding a recompressed payload once.
func (i *Image) Bitmap() (image.Image, error) {
	if i.encoded == nil {
		return i.bitmap, nil
	}
	i.once.Do(func() {
		i.decoded, i.err = jpeg.Decode(bytes.NewReader(i.encoded))
	})
	return i.decoded, i.err
}

// Encoded returns the recompressed JPEG payload, nil for decoded images.
func (i *Image) Encoded() []byte { return i.encoded }

// Weight estimates the memory held by the image.
func (i *Image) Weight() int64 {
	w := int64(unsafe.Sizeof(*i)) + int64(len(i.Key))
	if i.encoded != nil {
		return w + int64(len(i.encoded))
	}
	return w + int64(i.Width)*int64(i.Height)*4
}
