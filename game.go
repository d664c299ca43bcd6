// Package main - game.go
//
// This file implements the game phase controller, a state machine that sequences
// the perception components into complete rounds.
//
// Phases:
//   - Idle: not running
//   - Setup: canvas probe and overlay dismissal, once per run
//   - PlayRound: align, charge power, aim and fire, wait for the next turn
//
// Phase Transitions:
//   Idle -> Setup (Run)
//   Setup -> PlayRound (setup steps done)
//   PlayRound -> PlayRound (my turn again, or turn wait timed out)
//   PlayRound -> Idle (game finished, Stop, or context cancelled)
//
// Round Sequence:
//   1. Settle StartSettle
//   2. Align the bowler (AlignmentTracker)
//   3. Click PowerStart to begin charging
//   4. Stop the charge at full power or fall back (PowerGauge)
//   5. Fire when the arrow is centered or fall back (DirectionGauge)
//   6. Wait PostShot for the ball and pins
//   7. Wait for my turn or the end-of-game modal (TurnStateDetector)
//
// Every bounded wait ends in a fallback, so no step is fatal. The run flag and the
// context are checked at every poll boundary; Stop takes effect at the next one.
package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Phase represents the controller state
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSetup
	PhasePlayRound
)

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseSetup:
		return "SETUP"
	case PhasePlayRound:
		return "PLAY_ROUND"
	default:
		return "Unknown"
	}
}

// Outcome is how a controller run ended.
type Outcome int

const (
	OutcomeStopped Outcome = iota
	OutcomeGameFinished
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeStopped:
		return "Stopped"
	case OutcomeGameFinished:
		return "GameFinished"
	default:
		return "Unknown"
	}
}

// ErrAlreadyRunning is returned by Run on a controller that is running.
var ErrAlreadyRunning = errors.New("controller already running")

// Event is a human-readable status update.
type Event struct {
	Session string
	Phase   Phase
	Round   int
	Message string
	Time    time.Time
}

// EventSink receives status updates. It must not block.
type EventSink func(Event)

// Controller runs the phase state machine for one session.
type Controller struct {
	cfg     *Config
	frames  FrameSource
	input   InputSink
	pacer   *Pacer
	stats   *Statistics
	logger  *Logger
	session string
	events  EventSink

	align     *AlignmentTracker
	power     *PowerGauge
	direction *DirectionGauge
	turn      *TurnStateDetector

	running atomic.Bool

	mu     sync.Mutex
	phase  Phase
	round  int
	cancel context.CancelFunc
}

// NewController wires the analyzers and gauges for one session.
func NewController(cfg *Config, frames FrameSource, input InputSink, pacer *Pacer, stats *Statistics, logger *Logger) *Controller {
	pins := NewPinFieldAnalyzer(cfg.Pins, logger)
	aim := NewAimSelector(cfg.Aim)
	if stats == nil {
		stats = NewStatistics()
	}

	return &Controller{
		cfg:       cfg,
		frames:    frames,
		input:     input,
		pacer:     pacer,
		stats:     stats,
		logger:    logger,
		align:     NewAlignmentTracker(cfg.Align, cfg.Pins.Region, frames, pins, aim, input, pacer, logger),
		power:     NewPowerGauge(cfg.Power, frames, input, pacer, logger),
		direction: NewDirectionGauge(cfg.Direction, frames, input, pacer, logger),
		turn:      NewTurnStateDetector(cfg.Turn, frames, pacer, logger),
		round:     1,
	}
}

// SetEventSink installs a status listener tagged with the session name.
func (c *Controller) SetEventSink(session string, sink EventSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
	c.events = sink
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Round returns the current round number (1-based).
func (c *Controller) Round() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.round
}

// IsRunning reports the run flag.
func (c *Controller) IsRunning() bool {
	return c.running.Load()
}

// Stop clears the run flag and cancels pending waits.
func (c *Controller) Stop() {
	c.running.Store(false)
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run drives Setup then PlayRound until the game finishes or the controller is stopped.
func (c *Controller) Run(ctx context.Context) (Outcome, error) {
	if !c.running.CompareAndSwap(false, true) {
		return OutcomeStopped, ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.round = 1
	c.mu.Unlock()

	defer func() {
		cancel()
		c.running.Store(false)
		c.setPhase(PhaseIdle)
	}()

	c.setPhase(PhaseSetup)
	if !c.setup(ctx) {
		c.emit("Stopped during setup")
		return OutcomeStopped, nil
	}

	c.setPhase(PhasePlayRound)
	for c.active(ctx) {
		switch outcome := c.playRound(ctx); outcome {
		case TurnMine:
			c.stats.AddRound()
			c.mu.Lock()
			c.round++
			c.mu.Unlock()
		case TurnGameFinished:
			c.stats.AddGameFinished()
			c.emit("Game finished")
			return OutcomeGameFinished, nil
		case TurnTimeout:
			c.stats.AddTurnTimeout()
			c.logger.Warn("Player not found after timeout, retrying round %d", c.Round())
			c.emit("Turn wait timed out, retrying")
		case TurnStopped:
			c.emit("Stopped")
			return OutcomeStopped, nil
		}
	}

	c.emit("Stopped")
	return OutcomeStopped, nil
}

func (c *Controller) active(ctx context.Context) bool {
	return ctx.Err() == nil && c.running.Load()
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	prev := c.phase
	c.phase = p
	c.mu.Unlock()
	if prev != p {
		c.logger.Info("Phase %s -> %s", prev, p)
		c.emit(fmt.Sprintf("Phase %s", p))
	}
}

func (c *Controller) emit(message string) {
	c.mu.Lock()
	sink, ev := c.events, Event{Session: c.session, Phase: c.phase, Round: c.round, Message: message, Time: c.pacer.Now()}
	c.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

// setup probes the canvas and dismisses the start overlays. It returns false
// when the run ended before setup completed.
func (c *Controller) setup(ctx context.Context) bool {
	for {
		if !c.active(ctx) {
			return false
		}
		_, err := c.frames.Sample(ctx, c.cfg.Setup.Probe)
		if err == nil {
			break
		}
		c.logger.Warn("Cannot read game canvas: %v", err)
		c.emit("Waiting for canvas")
		if c.pacer.Settle(ctx, c.cfg.Setup.ProbeRetry) != nil {
			return false
		}
	}

	if c.pacer.Settle(ctx, c.cfg.Setup.Settle) != nil {
		return false
	}

	for _, step := range c.cfg.Setup.Steps {
		if !c.active(ctx) {
			return false
		}
		switch step.Kind {
		case StepScan:
			if !c.scanAndClick(ctx, step) && c.active(ctx) {
				c.stats.AddOverlaySkipped()
				c.emit(fmt.Sprintf("%s not found, skipped", step.Name))
			}
		case StepClick:
			c.click(ctx, step.At)
		}
		if c.pacer.Settle(ctx, step.Settle) != nil {
			return false
		}
	}
	return c.active(ctx)
}

// scanAndClick waits for a bright overlay button around step.At and clicks it.
// It reports whether the button was found before the timeout.
func (c *Controller) scanAndClick(ctx context.Context, step SetupStep) bool {
	c.logger.Info("Scanning for %s at %v", step.Name, step.At)
	window := Around(step.At, step.Window)
	isWhite := AllAbove(step.WhiteMin)
	deadline := c.pacer.Deadline(step.Timeout)

	for c.pacer.Before(deadline) {
		if region, err := c.frames.Sample(ctx, window); err == nil {
			if MatchRatio(region, isWhite) > step.Ratio {
				c.logger.Info("%s detected, clicking", step.Name)
				c.click(ctx, step.At)
				return true
			}
		}
		if c.pacer.Poll(ctx, step.Poll) != nil {
			return false
		}
	}

	c.logger.Info("%s not found (timeout), skipping", step.Name)
	return false
}

func (c *Controller) click(ctx context.Context, p Point) {
	if err := c.input.Click(ctx, p); err != nil {
		c.logger.Warn("Click at %v failed: %v", p, err)
	}
}

// playRound plays one shot and reports what the turn detector saw afterwards.
func (c *Controller) playRound(ctx context.Context) TurnOutcome {
	round := c.Round()
	c.logger.Info("--- Round %d starting ---", round)
	c.emit(fmt.Sprintf("Round %d", round))

	if c.pacer.Settle(ctx, c.cfg.Round.StartSettle) != nil {
		return TurnStopped
	}

	aligned := c.align.Align(ctx)
	switch aligned.Reason {
	case AlignStopped:
		return TurnStopped
	case AlignTimeout:
		c.stats.AddAlignTimeout()
	}
	if !c.active(ctx) {
		return TurnStopped
	}

	c.click(ctx, c.cfg.Power.Start)
	power := c.power.Charge(ctx)
	if power.Stopped {
		return TurnStopped
	}
	if power.Fallback {
		c.stats.AddPowerFallback()
	}

	direction := c.direction.Aim(ctx)
	if direction.Stopped {
		return TurnStopped
	}
	if direction.Fallback {
		c.stats.AddDirectionFallback()
	}

	c.logger.Info("Round %d shot released, waiting for animation", round)
	if c.pacer.Settle(ctx, c.cfg.Round.PostShot) != nil {
		return TurnStopped
	}

	outcome := c.turn.Wait(ctx)
	c.logger.Info("Round %d turn wait: %s", round, outcome)
	return outcome
}
