// Package main - sampler.go
//
// FrameSource is the perception boundary: every analyzer receives pixels through it
// and never touches the browser directly.
//
// Implementations:
//   - Browser (browser.go): live canvas read through chromedp
//   - ImageFrameSource: a still image, used by the offline analysis mode and tests
//
// A sample that cannot be produced returns an error wrapping ErrFrameUnavailable.
// Callers treat that as "no data this poll" and fall back locally; it is never fatal.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrFrameUnavailable reports that the frame could not be read for this poll.
var ErrFrameUnavailable = errors.New("frame unavailable")

// FrameSource samples rectangular regions of the current frame in logical coordinates.
type FrameSource interface {
	Sample(ctx context.Context, b Bounds) (*PixelRegion, error)
}

// ImageFrameSource samples a still image whose pixels are already in logical space.
type ImageFrameSource struct {
	img image.Image
}

// NewImageFrameSource creates a frame source backed by img.
func NewImageFrameSource(img image.Image) *ImageFrameSource {
	return &ImageFrameSource{img: img}
}

// Sample copies b out of the image. Pixels outside the image read as transparent black.
func (s *ImageFrameSource) Sample(ctx context.Context, b Bounds) (*PixelRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.img == nil || b.W <= 0 || b.H <= 0 {
		return nil, fmt.Errorf("%w: empty image or region %v", ErrFrameUnavailable, b)
	}
	return RegionFromImage(s.img, b), nil
}

// RegionFromImage copies b out of img into a new PixelRegion.
func RegionFromImage(img image.Image, b Bounds) *PixelRegion {
	region := NewPixelRegion(b)
	clip := b.Rect().Intersect(img.Bounds())
	rgba, fast := img.(*image.RGBA)

	for py := clip.Min.Y; py < clip.Max.Y; py++ {
		for px := clip.Min.X; px < clip.Max.X; px++ {
			var c color.RGBA
			if fast {
				c = rgba.RGBAAt(px, py)
			} else {
				c = color.RGBAModel.Convert(img.At(px, py)).(color.RGBA)
			}
			i := ((py-b.Y)*region.W + (px - b.X)) * 4
			region.Pix[i], region.Pix[i+1], region.Pix[i+2], region.Pix[i+3] = c.R, c.G, c.B, c.A
		}
	}
	return region
}
