// Package media derives preview artifacts from uploaded captures.
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	// registered decoders for uploaded images
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultThumbnailSize    = 300
	DefaultThumbnailQuality = 80
)

// Thumbnailer scales images to fit a bounding box and encodes them as JPEG
type Thumbnailer struct {
	maxWidth  int
	maxHeight int
	quality   int
}

func NewThumbnailer() *Thumbnailer {
	return &Thumbnailer{
		maxWidth:  DefaultThumbnailSize,
		maxHeight: DefaultThumbnailSize,
		quality:   DefaultThumbnailQuality,
	}
}

// Generate decodes src and returns a JPEG that fits inside the bounding box.
// Images already inside the box keep their size. Aspect ratio is preserved.
func (t *Thumbnailer) Generate(src io.Reader) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), t.maxWidth, t.maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: t.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func fitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}
	if width*maxHeight >= height*maxWidth {
		h := height * maxWidth / width
		if h < 1 {
			h = 1
		}
		return maxWidth, h
	}
	w := width * maxHeight / height
	if w < 1 {
		w = 1
	}
	return w, maxHeight
}
