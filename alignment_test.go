package main

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(cfg AlignConfig, frames FrameSource, input InputSink, clock Clock) *AlignmentTracker {
	defaults := DefaultConfig()
	return NewAlignmentTracker(cfg, defaults.Pins.Region, frames,
		NewPinFieldAnalyzer(defaults.Pins, nil), NewAimSelector(defaults.Aim),
		input, newTestPacer(clock), nil)
}

func TestAlignConvergesForEveryTarget(t *testing.T) {
	cfg := DefaultConfig()
	region := cfg.Pins.Region

	for target := 14; target <= 65; target++ {
		input := &recordingInput{}
		tracker := newTestTracker(cfg.Align, sequenceFrames(pinRegion(region, target)), input, newFakeClock())

		res := tracker.Align(context.Background())

		require.True(t, res.Converged, "target %d: %+v", target, res)
		assert.Equal(t, AlignBracketed, res.Reason, "target %d", target)
		assert.InDelta(t, float64(target), res.Target, 1e-9)
		assert.LessOrEqual(t, math.Abs(res.Position-float64(target)), tracker.StepSize()+1e-9, "target %d", target)
		assert.LessOrEqual(t, res.Steps, int(math.Ceil(float64(region.W)/tracker.StepSize()))+1)
		assert.Len(t, input.Clicks(), res.Steps)
	}
}

func TestAlignClicksTowardTarget(t *testing.T) {
	cfg := DefaultConfig()
	region := cfg.Pins.Region

	input := &recordingInput{}
	tracker := newTestTracker(cfg.Align, sequenceFrames(pinRegion(region, 60)), input, newFakeClock())
	res := tracker.Align(context.Background())

	require.NotZero(t, res.Steps)
	for _, c := range input.Clicks() {
		assert.Equal(t, cfg.Align.RightArrow, c)
	}

	input = &recordingInput{}
	tracker = newTestTracker(cfg.Align, sequenceFrames(pinRegion(region, 15)), input, newFakeClock())
	res = tracker.Align(context.Background())

	require.NotZero(t, res.Steps)
	for _, c := range input.Clicks() {
		assert.Equal(t, cfg.Align.LeftArrow, c)
	}
}

func TestAlignWithinDeadband(t *testing.T) {
	cfg := DefaultConfig().Align
	cfg.RightBias, cfg.LeftBias = 0, 0

	input := &recordingInput{}
	region := DefaultConfig().Pins.Region
	tracker := newTestTracker(cfg, sequenceFrames(solidRegion(region, black)), input, newFakeClock())

	res := tracker.Align(context.Background())

	// 35 -> 39.4 lands within 2.5 of the center target 40.
	assert.Equal(t, AlignAligned, res.Reason)
	assert.True(t, res.Converged)
	assert.Equal(t, 1, res.Steps)
	assert.InDelta(t, 35+80.0/18, tracker.Position(), 1e-9)
}

func TestAlignRetriesFailedSamples(t *testing.T) {
	cfg := DefaultConfig()
	clock := newFakeClock()
	frames := sequenceFrames(nil, nil, nil, solidRegion(cfg.Pins.Region, black))

	res := newTestTracker(cfg.Align, frames, &recordingInput{}, clock).Align(context.Background())

	assert.True(t, res.Converged)
	assert.Equal(t, cfg.Align.RetryDelay, clock.Sleeps()[0])
	assert.Equal(t, cfg.Align.RetryDelay, clock.Sleeps()[2])
}

func TestAlignTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Align.StepDivisor = 1000

	clock := newFakeClock()
	start := clock.Now()
	input := &recordingInput{}
	res := newTestTracker(cfg.Align, sequenceFrames(solidRegion(cfg.Pins.Region, black)), input, clock).Align(context.Background())

	assert.Equal(t, AlignTimeout, res.Reason)
	assert.False(t, res.Converged)
	assert.NotZero(t, res.Steps)
	assert.GreaterOrEqual(t, clock.Now().Sub(start), cfg.Align.Timeout)
	assert.Less(t, clock.Now().Sub(start), cfg.Align.Timeout+2*time.Second)
}

func TestAlignStopped(t *testing.T) {
	cfg := DefaultConfig()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := &recordingInput{}
	res := newTestTracker(cfg.Align, sequenceFrames(solidRegion(cfg.Pins.Region, black)), input, newFakeClock()).Align(ctx)

	assert.Equal(t, AlignStopped, res.Reason)
	assert.Empty(t, input.Clicks())
}

func TestBiasedDiff(t *testing.T) {
	cfg := DefaultConfig()
	tracker := newTestTracker(cfg.Align, nil, nil, newFakeClock())

	assert.InDelta(t, 10+17.5, tracker.BiasedDiff(45), 1e-9)
	assert.InDelta(t, -5-15.5, tracker.BiasedDiff(30), 1e-9)
	assert.InDelta(t, -15.5, tracker.BiasedDiff(35), 1e-9)
}
