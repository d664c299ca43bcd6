// Package main - analyze.go
//
// Offline analysis mode (-analyze shot.png).
//
// Runs every analyzer against a saved screenshot instead of a live browser, logs the
// signals and writes an annotated copy:
//   - region boxes: pins (white), power (yellow), direction (cyan),
//     player badge (red), end-of-game modal (blue)
//   - pin peaks as vertical ticks and the aim target as a green line
//   - one label per region with the value the controller would act on
//
// The screenshot must already be in logical coordinates (1000 pixels wide by default).
// This is the tool for tuning thresholds in lane-bot.yaml without playing a game.
package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// AnalysisReport holds every signal extracted from one frame.
type AnalysisReport struct {
	Peaks             []int
	Target            float64
	PowerCount        int
	PowerFull         bool
	DirectionCount    int
	DirectionX        float64
	DirectionCentered bool
	MyTurn            bool
	RedRatio          float64
	Finished          FinishedSignal
}

// Analyze runs all analyzers once against frames.
func Analyze(ctx context.Context, cfg *Config, frames FrameSource) (AnalysisReport, error) {
	var report AnalysisReport

	pinsRegion, err := frames.Sample(ctx, cfg.Pins.Region)
	if err != nil {
		return report, fmt.Errorf("pins: %w", err)
	}
	peaks := NewPinFieldAnalyzer(cfg.Pins, nil).ScanPins(pinsRegion)
	report.Peaks = peaks.Peaks
	report.Target = NewAimSelector(cfg.Aim).Select(peaks.Peaks, pinsRegion.W)

	if region, err := frames.Sample(ctx, cfg.Power.Region); err == nil {
		report.PowerFull, report.PowerCount = NewPowerGauge(cfg.Power, frames, nil, nil, nil).IsFull(region)
	}

	if region, err := frames.Sample(ctx, cfg.Direction.Region); err == nil {
		gauge := NewDirectionGauge(cfg.Direction, frames, nil, nil, nil)
		report.DirectionCount, report.DirectionX = gauge.Centroid(region)
		report.DirectionCentered = gauge.Centered(report.DirectionCount, report.DirectionX)
	}

	turn := NewTurnStateDetector(cfg.Turn, frames, nil, nil)
	if region, err := frames.Sample(ctx, cfg.Turn.PlayerRegion); err == nil {
		report.MyTurn, report.RedRatio = turn.CheckMyTurn(region)
	}
	if region, err := frames.Sample(ctx, cfg.Turn.FinishedRegion); err == nil {
		report.Finished = turn.CheckFinished(region)
	}
	return report, nil
}

// AnalyzeFile analyzes the PNG at in and writes the annotated image to out.
func AnalyzeFile(cfg *Config, in, out string) (AnalysisReport, error) {
	LogInfo("Analysis mode: loading %s", in)
	img, err := loadPNG(in)
	if err != nil {
		return AnalysisReport{}, fmt.Errorf("failed to load %s: %w", in, err)
	}

	report, err := Analyze(context.Background(), cfg, NewImageFrameSource(img))
	if err != nil {
		return report, err
	}

	LogInfo("Pins: %d peaks %v, target x=%.1f", len(report.Peaks), report.Peaks, report.Target)
	LogInfo("Power: %d lit pixels (full=%v)", report.PowerCount, report.PowerFull)
	LogInfo("Direction: %d pixels, x=%.1f (centered=%v)", report.DirectionCount, report.DirectionX, report.DirectionCentered)
	LogInfo("Turn: red=%.1f%% (mine=%v) blue=%.1f%% white=%.1f%% (finished=%v)",
		report.RedRatio*100, report.MyTurn, report.Finished.BlueRatio*100, report.Finished.WhiteRatio*100, report.Finished.Finished)

	if err := savePNG(out, drawAnalysis(img, cfg, report)); err != nil {
		return report, fmt.Errorf("failed to save %s: %w", out, err)
	}
	LogInfo("Analysis written to %s", out)
	return report, nil
}

// loadPNG loads a PNG image from file
func loadPNG(filename string) (*image.RGBA, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba, nil
}

// savePNG saves an image to PNG file
func savePNG(filename string, img image.Image) error {
	dir := filepath.Dir(filename)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

var (
	colWhite  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colYellow = color.RGBA{R: 255, G: 220, B: 0, A: 255}
	colCyan   = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	colRed    = color.RGBA{R: 255, G: 40, B: 40, A: 255}
	colBlue   = color.RGBA{R: 60, G: 120, B: 255, A: 255}
	colGreen  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	colPeak   = color.RGBA{R: 255, G: 0, B: 255, A: 255}
)

// drawAnalysis draws region boxes, peaks, the target and labels on a copy of img.
func drawAnalysis(img *image.RGBA, cfg *Config, r AnalysisReport) *image.RGBA {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	pins := cfg.Pins.Region
	drawRect(result, pins, colWhite, 1)
	for _, p := range r.Peaks {
		drawVLine(result, pins.X+p, pins.Y, pins.Y+cfg.Pins.ScanHeight, colPeak)
	}
	drawVLine(result, pins.X+int(r.Target), pins.Y, pins.Y+pins.H, colGreen)
	drawLabel(result, pins.X, pins.Y-4, fmt.Sprintf("pins %d target %.1f", len(r.Peaks), r.Target), colWhite)

	drawRect(result, cfg.Power.Region, colYellow, 2)
	drawLabel(result, cfg.Power.Region.X, cfg.Power.Region.Y-4, fmt.Sprintf("power %d full=%v", r.PowerCount, r.PowerFull), colYellow)

	drawRect(result, cfg.Direction.Region, colCyan, 2)
	drawLabel(result, cfg.Direction.Region.X, cfg.Direction.Region.Y-4,
		fmt.Sprintf("dir x=%.1f n=%d fire=%v", r.DirectionX, r.DirectionCount, r.DirectionCentered), colCyan)

	drawRect(result, cfg.Turn.PlayerRegion, colRed, 2)
	drawLabel(result, cfg.Turn.PlayerRegion.X, cfg.Turn.PlayerRegion.Y-4, fmt.Sprintf("red %.0f%%", r.RedRatio*100), colRed)

	drawRect(result, cfg.Turn.FinishedRegion, colBlue, 1)
	drawLabel(result, cfg.Turn.FinishedRegion.X, cfg.Turn.FinishedRegion.Y+cfg.Turn.FinishedRegion.H+14,
		fmt.Sprintf("modal blue %.0f%% white %.0f%%", r.Finished.BlueRatio*100, r.Finished.WhiteRatio*100), colBlue)

	return result
}

// drawRect draws a rectangle outline
func drawRect(img *image.RGBA, b Bounds, col color.RGBA, thickness int) {
	for t := 0; t < thickness; t++ {
		for x := b.X; x < b.X+b.W; x++ {
			img.Set(x, b.Y+t, col)
			img.Set(x, b.Y+b.H-t-1, col)
		}
		for y := b.Y; y < b.Y+b.H; y++ {
			img.Set(b.X+t, y, col)
			img.Set(b.X+b.W-t-1, y, col)
		}
	}
}

func drawVLine(img *image.RGBA, x, y0, y1 int, col color.RGBA) {
	for y := y0; y < y1; y++ {
		img.Set(x, y, col)
	}
}

// drawLabel renders text with its baseline at (x, y) on a dark backing strip.
func drawLabel(img *image.RGBA, x, y int, text string, col color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(col), Face: face}
	width := d.MeasureString(text).Ceil()
	backing := image.Rect(x-1, y-face.Ascent-1, x+width+1, y+face.Descent+1)
	draw.Draw(img, backing, image.NewUniform(color.RGBA{A: 200}), image.Point{}, draw.Over)

	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}
