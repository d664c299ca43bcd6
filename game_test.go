package main

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Message
	}
	return out
}

func newTestController(cfg *Config, frames FrameSource, input InputSink, clock Clock) (*Controller, *Statistics) {
	stats := NewStatistics()
	return NewController(cfg, frames, input, newTestPacer(clock), stats, nil), stats
}

func TestControllerPlaysFullGame(t *testing.T) {
	cfg := DefaultConfig()
	game := &fakeGame{cfg: cfg, finishedAfter: 1}
	input := &recordingInput{}
	c, stats := newTestController(cfg, game, input, newFakeClock())
	events := &eventLog{}
	c.SetEventSink("s1", events.add)

	outcome, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeGameFinished, outcome)
	assert.Equal(t, 2, c.Round())
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.False(t, c.IsRunning())
	assert.Equal(t, 1, stats.Rounds)
	assert.Equal(t, 1, stats.GamesFinished)
	assert.Zero(t, stats.PowerFallbacks)
	assert.Zero(t, stats.DirectionFallback)
	assert.Zero(t, stats.OverlaysSkipped)

	// Empty pin deck: target 40 from 35 takes two right steps before bracketing.
	right := cfg.Align.RightArrow
	shot := []Point{right, right, cfg.Power.Start, cfg.Power.Stop, cfg.Direction.Fire}
	want := []Point{{X: 400, Y: 500}, {X: 500, Y: 700}, {X: 500, Y: 750}}
	want = append(want, shot...)
	want = append(want, shot...)
	if diff := cmp.Diff(want, input.Clicks()); diff != "" {
		t.Errorf("clicks mismatch (-want +got):\n%s", diff)
	}

	msgs := events.messages()
	assert.Contains(t, msgs, "Phase SETUP")
	assert.Contains(t, msgs, "Phase PLAY_ROUND")
	assert.Contains(t, msgs, "Round 2")
	assert.Equal(t, "Phase IDLE", msgs[len(msgs)-1])
	for _, ev := range events.events {
		assert.Equal(t, "s1", ev.Session)
	}
}

func TestControllerSkipsMissingOverlay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Setup.Steps[0].WhiteMin = 255
	game := &fakeGame{cfg: cfg, finishedAfter: 1}
	input := &recordingInput{}
	clock := newFakeClock()
	start := clock.Now()
	c, stats := newTestController(cfg, game, input, clock)
	events := &eventLog{}
	c.SetEventSink("s1", events.add)

	outcome, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeGameFinished, outcome)
	assert.Equal(t, 1, stats.OverlaysSkipped)
	assert.Contains(t, events.messages(), "intro not found, skipped")
	assert.NotContains(t, input.Clicks()[:2], cfg.Setup.Steps[0].At)
	assert.Equal(t, Point{X: 500, Y: 700}, input.Clicks()[0])
	assert.GreaterOrEqual(t, clock.Now().Sub(start), cfg.Setup.Steps[0].Timeout)
}

func TestControllerRetriesCanvasProbe(t *testing.T) {
	cfg := DefaultConfig()
	game := &fakeGame{cfg: cfg, finishedAfter: 1, probeFailures: 3}
	c, _ := newTestController(cfg, game, &recordingInput{}, newFakeClock())
	events := &eventLog{}
	c.SetEventSink("s1", events.add)

	outcome, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeGameFinished, outcome)
	assert.Equal(t, 4, game.probes)

	waits := 0
	for _, m := range events.messages() {
		if m == "Waiting for canvas" {
			waits++
		}
	}
	assert.Equal(t, 3, waits)
}

func TestControllerTurnTimeoutRetriesRound(t *testing.T) {
	cfg := DefaultConfig()
	// Nothing ever shows the player badge or the modal.
	frames := frameFunc(func(ctx context.Context, b Bounds) (*PixelRegion, error) {
		if b == cfg.Power.Region {
			return solidRegion(b, white), nil
		}
		if b == cfg.Direction.Region {
			return arrowRegion(b, 96, 104), nil
		}
		return solidRegion(b, black), nil
	})
	c, stats := newTestController(cfg, frames, &recordingInput{}, newFakeClock())

	timeouts := 0
	c.SetEventSink("s1", func(ev Event) {
		if strings.HasPrefix(ev.Message, "Turn wait timed out") {
			timeouts++
			if timeouts == 2 {
				c.Stop()
			}
		}
	})

	outcome, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeStopped, outcome)
	assert.Equal(t, 2, stats.TurnTimeouts)
	assert.Zero(t, stats.Rounds)
	assert.Equal(t, 1, c.Round(), "a timed out turn replays the same round")
}

func TestControllerRejectsConcurrentRun(t *testing.T) {
	cfg := DefaultConfig()
	game := &fakeGame{cfg: cfg, finishedAfter: 1}
	c, _ := newTestController(cfg, game, &recordingInput{}, newFakeClock())

	var nested error
	c.SetEventSink("s1", func(ev Event) {
		if ev.Message == "Phase SETUP" {
			_, nested = c.Run(context.Background())
		}
	})

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, nested, ErrAlreadyRunning)
}

func TestControllerStopsOnCancelledContext(t *testing.T) {
	cfg := DefaultConfig()
	game := &fakeGame{cfg: cfg}
	input := &recordingInput{}
	c, _ := newTestController(cfg, game, input, newFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStopped, outcome)
	assert.Empty(t, input.Clicks())
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "IDLE", PhaseIdle.String())
	assert.Equal(t, "SETUP", PhaseSetup.String())
	assert.Equal(t, "PLAY_ROUND", PhasePlayRound.String())
	assert.Equal(t, "GameFinished", OutcomeGameFinished.String())
}
