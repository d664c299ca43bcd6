// Package main - turn.go
//
// TurnStateDetector decides what happened after a shot: the local player is up
// again (red shirt in the player badge) or the game is over (blue end-of-game modal).
//
// Game-over wins: it is checked first on every poll, so a frame showing both
// signals reports the game as finished.
package main

import (
	"context"
)

// TurnOutcome is the result of waiting for the next turn.
type TurnOutcome int

const (
	TurnTimeout TurnOutcome = iota
	TurnMine
	TurnGameFinished
	TurnStopped
)

// String returns the string representation of the outcome
func (o TurnOutcome) String() string {
	switch o {
	case TurnTimeout:
		return "Timeout"
	case TurnMine:
		return "MyTurn"
	case TurnGameFinished:
		return "GameFinished"
	case TurnStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// FinishedSignal holds the modal ratios of one sample.
type FinishedSignal struct {
	Finished   bool
	BlueRatio  float64
	WhiteRatio float64
}

// TurnStateDetector polls the player badge and the modal area.
type TurnStateDetector struct {
	cfg     TurnConfig
	frames  FrameSource
	pacer   *Pacer
	logger  *Logger
	isRed   ColorPredicate
	isBlue  ColorPredicate
	isWhite ColorPredicate
}

// NewTurnStateDetector creates a detector.
func NewTurnStateDetector(cfg TurnConfig, frames FrameSource, pacer *Pacer, logger *Logger) *TurnStateDetector {
	return &TurnStateDetector{
		cfg:     cfg,
		frames:  frames,
		pacer:   pacer,
		logger:  logger,
		isRed:   StrongRed(cfg),
		isBlue:  ModalBlue(cfg),
		isWhite: AllAbove(cfg.WhiteMin),
	}
}

// CheckMyTurn reports whether region shows the active player's red shirt.
func (d *TurnStateDetector) CheckMyTurn(region *PixelRegion) (bool, float64) {
	ratio := MatchRatio(region, d.isRed)
	return ratio > d.cfg.RedRatio, ratio
}

// CheckFinished reports whether region shows the end-of-game modal.
// The white-text ratio is informational only.
func (d *TurnStateDetector) CheckFinished(region *PixelRegion) FinishedSignal {
	sig := FinishedSignal{
		BlueRatio:  MatchRatio(region, d.isBlue),
		WhiteRatio: MatchRatio(region, d.isWhite),
	}
	sig.Finished = sig.BlueRatio > d.cfg.BlueRatio
	return sig
}

// Wait polls until the player is up, the game is over, the timeout elapses or
// ctx ends. Failed samples count as "not seen" for that poll.
func (d *TurnStateDetector) Wait(ctx context.Context) TurnOutcome {
	deadline := d.pacer.Deadline(d.cfg.Timeout)

	for d.pacer.Before(deadline) {
		if ctx.Err() != nil {
			return TurnStopped
		}

		if region, err := d.frames.Sample(ctx, d.cfg.FinishedRegion); err == nil {
			sig := d.CheckFinished(region)
			if sig.BlueRatio > d.cfg.LogBlueRatio || sig.WhiteRatio > d.cfg.LogWhiteRatio {
				d.logger.Debug("Modal check: blue=%.1f%% white=%.1f%%", sig.BlueRatio*100, sig.WhiteRatio*100)
			}
			if sig.Finished {
				d.logger.Info("Game finished modal detected (blue %.1f%%)", sig.BlueRatio*100)
				return TurnGameFinished
			}
		}

		if region, err := d.frames.Sample(ctx, d.cfg.PlayerRegion); err == nil {
			if mine, ratio := d.CheckMyTurn(region); mine {
				d.logger.Info("Player turn detected (red %.1f%%)", ratio*100)
				return TurnMine
			}
		}

		if d.pacer.Poll(ctx, d.cfg.Poll) != nil {
			return TurnStopped
		}
	}
	return TurnTimeout
}
