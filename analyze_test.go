package main

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paint fills a logical rectangle of img.
func paint(img *image.RGBA, b Bounds, c color.RGBA) {
	for y := b.Y; y < b.Y+b.H; y++ {
		for x := b.X; x < b.X+b.W; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// syntheticFrame draws a frame where every analyzer has something to find.
func syntheticFrame(cfg *Config) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cfg.LogicalWidth, 1300))
	paint(img, Bounds{W: cfg.LogicalWidth, H: 1300}, black)

	pins := cfg.Pins.Region
	for _, x := range []int{20, 55} {
		paint(img, Bounds{X: pins.X + x - 4, Y: pins.Y, W: 9, H: 40}, white)
	}
	paint(img, cfg.Power.Region, white)
	dir := cfg.Direction.Region
	paint(img, Bounds{X: dir.X + 96, Y: dir.Y, W: 9, H: dir.H}, arrowBlue)
	paint(img, cfg.Turn.PlayerRegion, shirtRed)
	return img
}

func TestAnalyze(t *testing.T) {
	cfg := DefaultConfig()

	report, err := Analyze(context.Background(), cfg, NewImageFrameSource(syntheticFrame(cfg)))
	require.NoError(t, err)

	if diff := cmp.Diff([]int{20, 55}, report.Peaks); diff != "" {
		t.Errorf("peaks mismatch (-want +got):\n%s", diff)
	}
	// Spread 35 is below the compact threshold, so the target is the mean.
	assert.InDelta(t, 37.5, report.Target, 1e-9)
	assert.True(t, report.PowerFull)
	assert.Equal(t, cfg.Power.Region.Size(), report.PowerCount)
	assert.True(t, report.DirectionCentered)
	assert.InDelta(t, 100, report.DirectionX, 1e-9)
	assert.True(t, report.MyTurn)
	assert.InDelta(t, 1, report.RedRatio, 1e-9)
	assert.False(t, report.Finished.Finished)
}

func TestAnalyzeFile(t *testing.T) {
	cfg := DefaultConfig()
	dir := t.TempDir()
	in := filepath.Join(dir, "shot.png")
	out := filepath.Join(dir, "annotated", "result.png")
	require.NoError(t, savePNG(in, syntheticFrame(cfg)))

	report, err := AnalyzeFile(cfg, in, out)
	require.NoError(t, err)
	assert.Len(t, report.Peaks, 2)

	annotated, err := loadPNG(out)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, cfg.LogicalWidth, 1300), annotated.Bounds())

	// The aim line is drawn in green below the scanned band.
	target := annotated.RGBAAt(cfg.Pins.Region.X+37, cfg.Pins.Region.Y+60)
	assert.Equal(t, colGreen, target)

	_, err = AnalyzeFile(cfg, filepath.Join(dir, "missing.png"), out)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestImageFrameSource(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	paint(img, Bounds{W: 10, H: 10}, white)
	src := NewImageFrameSource(img)

	r, err := src.Sample(context.Background(), Bounds{X: 8, Y: 8, W: 4, H: 4})
	require.NoError(t, err)
	require.True(t, r.Valid())

	red, _, _ := r.At(0, 0)
	assert.Equal(t, uint8(255), red)
	red, _, _ = r.At(3, 3)
	assert.Zero(t, red, "outside the image reads black")

	_, err = src.Sample(context.Background(), Bounds{W: 0, H: 3})
	assert.ErrorIs(t, err, ErrFrameUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Sample(ctx, Bounds{W: 1, H: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
