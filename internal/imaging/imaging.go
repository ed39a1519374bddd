// Package imaging normalizes product photos and derives list thumbnails.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"

	"github.com/engineering-ims/ims/internal/apperr"
)

// Defaults for product photos.
const (
	DefaultMaxDimension = 1024
	ThumbnailDimension  = 256
	JPEGQuality         = 85
	thumbnailQuality    = 75
)

// MaxUploadBytes is the largest accepted upload.
const MaxUploadBytes = 5 << 20

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Photo is a processed product photo and its thumbnail, both JPEG.
type Photo struct {
	Data      []byte
	Thumbnail []byte
	MIME      string
}

// Processor turns uploads into stored photos.
type Processor struct {
	MaxDimension int
}

// NewProcessor returns a Processor that keeps photos within maxDim pixels on
// either side. A non-positive maxDim uses DefaultMaxDimension.
func NewProcessor(maxDim int) *Processor {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	return &Processor{MaxDimension: maxDim}
}

// Process validates an upload by sniffing its bytes, downscales it and
// re-encodes it as JPEG together with a thumbnail.
func (p *Processor) Process(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, apperr.Validation("image is larger than %d MB", MaxUploadBytes>>20)
	}

	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, apperr.Validation("unsupported image format %s; only JPEG and PNG are accepted", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Validation("image could not be decoded: %v", err)
	}

	full, err := encode(downscale(img, p.MaxDimension), JPEGQuality)
	if err != nil {
		return nil, err
	}
	thumb, err := encode(downscale(img, ThumbnailDimension), thumbnailQuality)
	if err != nil {
		return nil, err
	}

	return &Photo{Data: full, Thumbnail: thumb, MIME: "image/jpeg"}, nil
}

func encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale resizes img so neither side exceeds maxDim, keeping the aspect
// ratio. Smaller images are returned as is.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
