// Package picture prepares uploaded images for storage.
package picture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrUnsupportedFormat is returned for anything other than JPEG or PNG input.
var ErrUnsupportedFormat = errors.New("only PNG and JPG images are allowed")

// ErrImageTooLarge is returned when the declared dimensions exceed the pixel limit.
var ErrImageTooLarge = errors.New("image dimensions too large")

// DefaultMaxPixels bounds width*height of accepted images.
const DefaultMaxPixels = 40_000_000

// Service decodes, crops, resizes and re-encodes images.
type Service struct {
	maxPixels int
}

func New() *Service {
	return &Service{maxPixels: DefaultMaxPixels}
}

// Decode reads JPEG or PNG bytes. PNG input is flattened onto white so the
// result can be written as JPEG without a transparent channel.
func (s *Service) Decode(data []byte) (image.Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if format != "jpeg" && format != "png" {
		return nil, ErrUnsupportedFormat
	}
	// Checked before decoding: a few KB of PNG can declare gigabytes of pixels.
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(s.maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if format == "png" {
		b := img.Bounds()
		bg := imaging.New(b.Dx(), b.Dy(), color.White)
		return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0), nil
	}
	return img, nil
}

// CropSquare cuts the largest centered square out of img.
func (s *Service) CropSquare(img image.Image) image.Image {
	b := img.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	return imaging.CropCenter(img, side, side)
}

// Resize scales img to size x size pixels.
func (s *Service) Resize(img image.Image, size int) image.Image {
	return imaging.Resize(img, size, size, imaging.Lanczos)
}

// Encode writes img in the named format ("jpg", "jpeg" or "png").
func (s *Service) Encode(img image.Image, format string) (*bytes.Reader, error) {
	f, err := imaging.FormatFromExtension(strings.TrimPrefix(strings.ToLower(format), "."))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, f); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return bytes.NewReader(buf.Bytes()), nil
}
