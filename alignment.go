// Package main - alignment.go
//
// AlignmentTracker steers the bowler under the chosen target by dead reckoning.
//
// The bowler itself is never detected. The tracker keeps a belief of its x offset
// inside the pin region, starting from StartOffset each pass, and moves it by one
// step (region width / StepDivisor) per arrow click. Each iteration:
//
//   1. Sample the pin region (failure: wait RetryDelay and retry)
//   2. target = AimSelector.Select(ScanPins(region))
//   3. diff = target - position, biased by +RightBias when positive and
//      -LeftBias otherwise
//   4. |biased| <= Deadband: aligned
//   5. Otherwise click the right or left arrow, update the belief, settle
//
// The asymmetric bias can make the deadband unreachable from either side. Once the
// commanded direction flips the belief has crossed the goal and is within one step
// of it, so the pass is accepted as bracketed. A pass that runs out of time is
// accepted too; alignment never fails a round.
package main

import (
	"context"
	"math"
)

// Alignment end reasons.
const (
	AlignAligned   = "aligned"
	AlignBracketed = "bracketed"
	AlignTimeout   = "timeout"
	AlignStopped   = "stopped"
)

// AlignResult describes one alignment pass.
type AlignResult struct {
	Steps     int
	Position  float64
	Target    float64
	Converged bool
	Reason    string
}

// AlignmentTracker owns the bowler position belief for one session.
type AlignmentTracker struct {
	cfg      AlignConfig
	region   Bounds
	frames   FrameSource
	analyzer *PinFieldAnalyzer
	aim      *AimSelector
	input    InputSink
	pacer    *Pacer
	logger   *Logger

	position float64
}

// NewAlignmentTracker creates a tracker that reads pins from region.
func NewAlignmentTracker(cfg AlignConfig, region Bounds, frames FrameSource, analyzer *PinFieldAnalyzer,
	aim *AimSelector, input InputSink, pacer *Pacer, logger *Logger) *AlignmentTracker {
	return &AlignmentTracker{
		cfg:      cfg,
		region:   region,
		frames:   frames,
		analyzer: analyzer,
		aim:      aim,
		input:    input,
		pacer:    pacer,
		logger:   logger,
		position: cfg.StartOffset,
	}
}

// Position returns the current belief of the bowler offset.
func (t *AlignmentTracker) Position() float64 {
	return t.position
}

// StepSize returns how far one arrow click moves the belief.
func (t *AlignmentTracker) StepSize() float64 {
	return float64(t.region.W) / t.cfg.StepDivisor
}

// BiasedDiff applies the asymmetric release bias to target - position.
func (t *AlignmentTracker) BiasedDiff(target float64) float64 {
	diff := target - t.position
	if diff > 0 {
		return diff + t.cfg.RightBias
	}
	return diff - t.cfg.LeftBias
}

// Align runs one alignment pass and reports how it ended.
func (t *AlignmentTracker) Align(ctx context.Context) AlignResult {
	t.position = t.cfg.StartOffset
	step := t.StepSize()
	deadline := t.pacer.Deadline(t.cfg.Timeout)
	result := AlignResult{Reason: AlignTimeout}
	lastDir := 0

	for t.pacer.Before(deadline) {
		if ctx.Err() != nil {
			result.Reason = AlignStopped
			break
		}

		region, err := t.frames.Sample(ctx, t.region)
		if err != nil {
			t.logger.Debug("Align: pin sample failed: %v", err)
			if t.pacer.Poll(ctx, t.cfg.RetryDelay) != nil {
				result.Reason = AlignStopped
				break
			}
			continue
		}

		peaks := t.analyzer.ScanPins(region)
		target := t.aim.Select(peaks.Peaks, region.W)
		biased := t.BiasedDiff(target)
		result.Target = target

		if math.Abs(biased) <= t.cfg.Deadband {
			result.Converged, result.Reason = true, AlignAligned
			break
		}

		dir, arrow := 1, t.cfg.RightArrow
		if biased < 0 {
			dir, arrow = -1, t.cfg.LeftArrow
		}
		if lastDir != 0 && dir != lastDir {
			result.Converged, result.Reason = true, AlignBracketed
			break
		}

		t.logger.Debug("Align: target=%.1f position=%.1f biased=%.1f step=%+d", target, t.position, biased, dir)
		if err := t.input.Click(ctx, arrow); err != nil {
			t.logger.Warn("Align: arrow click failed: %v", err)
		}
		t.position += float64(dir) * step
		result.Steps++
		lastDir = dir

		if t.pacer.Settle(ctx, t.cfg.Settle) != nil {
			result.Reason = AlignStopped
			break
		}
	}

	result.Position = t.position
	switch result.Reason {
	case AlignTimeout:
		t.logger.Warn("Align: timeout after %d steps, proceeding at %.1f", result.Steps, t.position)
	case AlignStopped:
		t.logger.Debug("Align: stopped after %d steps", result.Steps)
	default:
		t.logger.Info("Align: %s after %d steps (target %.1f, position %.1f)", result.Reason, result.Steps, result.Target, t.position)
	}
	return result
}
