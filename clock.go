// Package main - clock.go
//
// Time source and pacing for every wait in the agent.
//
// All sleeps go through a Clock so the control loop can be driven by a fake clock
// in tests. The Pacer adds human-like variance: settle delays are jittered by a
// configured fraction with a floor, poll intervals are exact.
package main

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Clock abstracts wall time. Sleep returns early with ctx.Err() on cancellation.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// RealClock returns the wall-clock implementation.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pacer owns the clock and the randomness used for delays and click jitter.
type Pacer struct {
	clock   Clock
	jitter  float64
	minWait time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPacer creates a pacer. A nil rng seeds one from the runtime source.
func NewPacer(clock Clock, cfg InputConfig, rng *rand.Rand) *Pacer {
	if clock == nil {
		clock = RealClock()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Pacer{clock: clock, jitter: cfg.WaitJitter, minWait: cfg.MinWait, rng: rng}
}

// Now returns the clock's current time.
func (p *Pacer) Now() time.Time { return p.clock.Now() }

// Between returns a uniform integer in [lo, hi].
func (p *Pacer) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo + p.rng.IntN(hi-lo+1)
}

// Jittered returns d moved by up to +/- jitter*d, never below the floor.
func (p *Pacer) Jittered(d time.Duration) time.Duration {
	variance := int(float64(d.Milliseconds()) * p.jitter)
	out := d + time.Duration(p.Between(-variance, variance))*time.Millisecond
	if out < p.minWait {
		out = p.minWait
	}
	return out
}

// Settle sleeps for a jittered d.
func (p *Pacer) Settle(ctx context.Context, d time.Duration) error {
	return p.clock.Sleep(ctx, p.Jittered(d))
}

// Poll sleeps for exactly d.
func (p *Pacer) Poll(ctx context.Context, d time.Duration) error {
	return p.clock.Sleep(ctx, d)
}

// Deadline returns the instant d from now.
func (p *Pacer) Deadline(d time.Duration) time.Time {
	return p.clock.Now().Add(d)
}

// Before reports whether the clock has not yet reached t.
func (p *Pacer) Before(t time.Time) bool {
	return p.clock.Now().Before(t)
}
