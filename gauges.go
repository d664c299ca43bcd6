// Package main - gauges.go
//
// Timing gauges for the shot.
//
// PowerGauge watches the vertical power bar and stops the charge once enough of it
// is lit. DirectionGauge watches the swinging direction arrow and fires when its
// horizontal centroid crosses the middle of the region. Both are bounded by a
// timeout and end with exactly one fallback click when they never trigger, so a
// shot is always released.
package main

import (
	"context"
	"math"
)

// GaugeResult describes one gauge pass.
type GaugeResult struct {
	Triggered bool    // the signal was seen and the trigger click sent
	Fallback  bool    // the timeout fallback click was sent
	Stopped   bool    // the context ended before either click
	Polls     int     // successful samples evaluated
	Count     int     // last matching pixel count
	MeanX     float64 // last indicator centroid (direction only)
}

// PowerGauge releases the power charge at full strength.
type PowerGauge struct {
	cfg    PowerConfig
	frames FrameSource
	input  InputSink
	pacer  *Pacer
	logger *Logger
	isLit  ColorPredicate
}

// NewPowerGauge creates a power gauge.
func NewPowerGauge(cfg PowerConfig, frames FrameSource, input InputSink, pacer *Pacer, logger *Logger) *PowerGauge {
	return &PowerGauge{cfg: cfg, frames: frames, input: input, pacer: pacer, logger: logger, isLit: AllAbove(cfg.LitMin)}
}

// IsFull reports whether the lit pixel count of region strictly exceeds the threshold.
func (g *PowerGauge) IsFull(region *PixelRegion) (bool, int) {
	count := CountMatching(region, g.isLit)
	return count > g.cfg.FullThreshold, count
}

// Charge polls the power bar until full or timeout.
func (g *PowerGauge) Charge(ctx context.Context) GaugeResult {
	var result GaugeResult
	deadline := g.pacer.Deadline(g.cfg.Timeout)

	for g.pacer.Before(deadline) {
		if ctx.Err() != nil {
			result.Stopped = true
			return result
		}

		if region, err := g.frames.Sample(ctx, g.cfg.Region); err == nil {
			result.Polls++
			full, count := g.IsFull(region)
			result.Count = count
			if full {
				g.logger.Info("Power full (%d lit pixels), stopping charge", count)
				g.click(ctx, g.cfg.Stop)
				result.Triggered = true
				return result
			}
		}

		if g.pacer.Poll(ctx, g.cfg.Poll) != nil {
			result.Stopped = true
			return result
		}
	}

	g.logger.Warn("Power timeout (last count %d), firing fallback", result.Count)
	g.click(ctx, g.cfg.Fallback)
	result.Fallback = true
	return result
}

func (g *PowerGauge) click(ctx context.Context, p Point) {
	if err := g.input.Click(ctx, p); err != nil {
		g.logger.Warn("Power click at %v failed: %v", p, err)
	}
}

// DirectionGauge fires when the direction arrow is centered.
type DirectionGauge struct {
	cfg         DirectionConfig
	frames      FrameSource
	input       InputSink
	pacer       *Pacer
	logger      *Logger
	isIndicator ColorPredicate
}

// NewDirectionGauge creates a direction gauge.
func NewDirectionGauge(cfg DirectionConfig, frames FrameSource, input InputSink, pacer *Pacer, logger *Logger) *DirectionGauge {
	return &DirectionGauge{cfg: cfg, frames: frames, input: input, pacer: pacer, logger: logger, isIndicator: IndicatorBlue(cfg)}
}

// Centroid returns the number of indicator pixels on the stride grid and their mean x.
func (g *DirectionGauge) Centroid(region *PixelRegion) (int, float64) {
	if !region.Valid() {
		return 0, 0
	}
	count, sumX := 0, 0
	for y := 0; y < region.H; y += g.cfg.Stride {
		for x := 0; x < region.W; x += g.cfg.Stride {
			if g.isIndicator(region.At(x, y)) {
				count++
				sumX += x
			}
		}
	}
	if count == 0 {
		return 0, 0
	}
	return count, float64(sumX) / float64(count)
}

// Centered reports whether an indicator is present and its centroid is within tolerance.
func (g *DirectionGauge) Centered(count int, meanX float64) bool {
	return count > g.cfg.MinCount && math.Abs(meanX-g.cfg.Center) < g.cfg.Tolerance
}

// Aim polls the direction arrow until centered, timeout or a failed sample.
func (g *DirectionGauge) Aim(ctx context.Context) GaugeResult {
	var result GaugeResult
	deadline := g.pacer.Deadline(g.cfg.Timeout)

	for g.pacer.Before(deadline) {
		if ctx.Err() != nil {
			result.Stopped = true
			return result
		}

		region, err := g.frames.Sample(ctx, g.cfg.Region)
		if err != nil {
			g.logger.Debug("Direction sample failed, ending scan: %v", err)
			break
		}
		result.Polls++
		result.Count, result.MeanX = g.Centroid(region)

		if g.Centered(result.Count, result.MeanX) {
			g.logger.Info("Direction centered (x=%.1f, %d pixels), firing", result.MeanX, result.Count)
			g.click(ctx, g.cfg.Fire)
			result.Triggered = true
			if g.pacer.Settle(ctx, g.cfg.Settle) != nil {
				result.Stopped = true
			}
			return result
		}

		if g.pacer.Poll(ctx, g.cfg.Poll) != nil {
			result.Stopped = true
			return result
		}
	}

	if ctx.Err() != nil {
		result.Stopped = true
		return result
	}
	g.logger.Warn("Direction not centered, firing blind")
	g.click(ctx, g.cfg.Fire)
	result.Fallback = true
	return result
}

func (g *DirectionGauge) click(ctx context.Context, p Point) {
	if err := g.input.Click(ctx, p); err != nil {
		g.logger.Warn("Direction click at %v failed: %v", p, err)
	}
}
