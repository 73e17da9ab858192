// Package processor re-encodes uploaded images before publication: bounded
// downscale, format-aware compression and an optional text watermark.
package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Options enumerates the recognized processing parameters. Zero values are
// replaced with defaults by NewPipeline; out-of-range values are rejected.
type Options struct {
	MaxWidth         int
	MaxHeight        int
	JPEGQuality      int
	WatermarkText    string
	WatermarkOpacity float64
}

const (
	defaultMaxWidth         = 1920
	defaultMaxHeight        = 1080
	defaultJPEGQuality      = 80
	defaultWatermarkOpacity = 0.5
)

// Pipeline applies a validated set of options to image bytes.
type Pipeline struct {
	opts Options
}

// NewPipeline validates options, fills defaults and builds a pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.MaxWidth == 0 {
		opts.MaxWidth = defaultMaxWidth
	}
	if opts.MaxHeight == 0 {
		opts.MaxHeight = defaultMaxHeight
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = defaultJPEGQuality
	}
	if opts.WatermarkOpacity == 0 {
		opts.WatermarkOpacity = defaultWatermarkOpacity
	}

	if opts.MaxWidth < 1 || opts.MaxHeight < 1 {
		return nil, fmt.Errorf("processor: bounds must be positive, got %dx%d", opts.MaxWidth, opts.MaxHeight)
	}
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		return nil, fmt.Errorf("processor: jpeg quality must be in [1, 100], got %d", opts.JPEGQuality)
	}
	if opts.WatermarkOpacity < 0 || opts.WatermarkOpacity > 1 {
		return nil, fmt.Errorf("processor: watermark opacity must be in [0, 1], got %g", opts.WatermarkOpacity)
	}

	return &Pipeline{opts: opts}, nil
}

// Options returns the effective options after default filling.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Process re-encodes the image according to the pipeline options and returns
// the transformed bytes with their mime type. GIF and WebP pass through
// untouched: resizing would drop animation frames, and the stored original
// is served as-is for those formats.
func (p *Pipeline) Process(data []byte, mimeType string) ([]byte, string, error) {
	switch mimeType {
	case "image/jpeg", "image/png":
	default:
		return data, mimeType, nil
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() > p.opts.MaxWidth || bounds.Dy() > p.opts.MaxHeight {
		src = imaging.Fit(src, p.opts.MaxWidth, p.opts.MaxHeight, imaging.Lanczos)
	}

	if p.opts.WatermarkText != "" {
		src = p.watermark(src)
	}

	var buf bytes.Buffer
	switch mimeType {
	case "image/png":
		err = imaging.Encode(&buf, src, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	default:
		err = imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(p.opts.JPEGQuality))
	}
	if err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}

	return buf.Bytes(), mimeType, nil
}

// watermark overlays the configured text at the bottom-right corner.
func (p *Pipeline) watermark(src image.Image) image.Image {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, p.opts.WatermarkText).Ceil()
	textHeight := face.Metrics().Height.Ceil()

	const pad = 8
	label := image.NewNRGBA(image.Rect(0, 0, textWidth+2*pad, textHeight+2*pad))
	drawer := &font.Drawer{
		Dst:  label,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(pad, pad+face.Metrics().Ascent.Ceil()),
	}
	drawer.DrawString(p.opts.WatermarkText)

	bounds := src.Bounds()
	dst := imaging.Clone(src)
	position := image.Pt(bounds.Dx()-label.Bounds().Dx()-pad, bounds.Dy()-label.Bounds().Dy()-pad)
	return imaging.Overlay(dst, label, position, p.opts.WatermarkOpacity)
}
