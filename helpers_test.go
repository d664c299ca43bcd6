package main

import (
	"context"
	"errors"
	"image/color"
	"math/rand/v2"
	"sync"
	"time"
)

var (
	black     = color.RGBA{A: 255}
	white     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	shirtRed  = color.RGBA{R: 200, G: 20, B: 20, A: 255}
	modalBlue = color.RGBA{R: 20, G: 40, B: 200, A: 255}
	arrowBlue = color.RGBA{R: 0, G: 100, B: 255, A: 255}
)

var errNoFrame = errors.New("no frame")

// fakeClock advances only when slept on, so timeouts elapse instantly.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func newTestPacer(clock Clock) *Pacer {
	return NewPacer(clock, DefaultConfig().Input, rand.New(rand.NewPCG(1, 2)))
}

// frameFunc adapts a function to FrameSource.
type frameFunc func(ctx context.Context, b Bounds) (*PixelRegion, error)

func (f frameFunc) Sample(ctx context.Context, b Bounds) (*PixelRegion, error) {
	return f(ctx, b)
}

// sequenceFrames returns the scripted results in order and repeats the last one.
func sequenceFrames(regions ...*PixelRegion) FrameSource {
	var mu sync.Mutex
	i := 0
	return frameFunc(func(ctx context.Context, b Bounds) (*PixelRegion, error) {
		mu.Lock()
		defer mu.Unlock()
		r := regions[min(i, len(regions)-1)]
		i++
		if r == nil {
			return nil, errNoFrame
		}
		return r, nil
	})
}

// recordingInput records logical clicks.
type recordingInput struct {
	mu     sync.Mutex
	clicks []Point
}

func (r *recordingInput) Click(ctx context.Context, p Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clicks = append(r.clicks, p)
	return nil
}

func (r *recordingInput) Clicks() []Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Point(nil), r.clicks...)
}

func solidRegion(b Bounds, c color.RGBA) *PixelRegion {
	r := NewPixelRegion(b)
	r.Fill(Bounds{W: b.W, H: b.H}, c)
	return r
}

// partialRegion paints the first n pixels (row-major) with c over black.
func partialRegion(b Bounds, n int, c color.RGBA) *PixelRegion {
	r := solidRegion(b, black)
	for i := 0; i < n && i < r.Pixels(); i++ {
		r.Set(i%r.W, i/r.W, c)
	}
	return r
}

// ratioRegion paints the given fraction of pixels with c over black.
func ratioRegion(b Bounds, fraction float64, c color.RGBA) *PixelRegion {
	return partialRegion(b, int(fraction*float64(b.W*b.H)), c)
}

// pinRegion draws a white bar of width 9 centered on each column, spanning the
// top band, which gives a unique smoothed maximum exactly at the column.
func pinRegion(b Bounds, centers ...int) *PixelRegion {
	r := solidRegion(b, black)
	for _, c := range centers {
		r.Fill(Bounds{X: c - 4, Y: 0, W: 9, H: 40}, white)
	}
	return r
}

// arrowRegion draws the direction indicator spanning columns [x0, x1].
func arrowRegion(b Bounds, x0, x1 int) *PixelRegion {
	r := solidRegion(b, black)
	r.Fill(Bounds{X: x0, Y: 0, W: x1 - x0 + 1, H: b.H}, arrowBlue)
	return r
}

// fakeGame answers every region the controller samples.
//
// The player badge is always red. The end-of-game modal appears once the badge
// has been seen finishedAfter times (never when finishedAfter is 0).
type fakeGame struct {
	cfg           *Config
	finishedAfter int
	probeFailures int

	mu            sync.Mutex
	playerSamples int
	probes        int
}

func (g *fakeGame) Sample(ctx context.Context, b Bounds) (*PixelRegion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	cfg := g.cfg
	switch b {
	case cfg.Setup.Probe:
		g.probes++
		if g.probes <= g.probeFailures {
			return nil, errNoFrame
		}
		return solidRegion(b, black), nil
	case Around(cfg.Setup.Steps[0].At, cfg.Setup.Steps[0].Window):
		return solidRegion(b, white), nil
	case cfg.Power.Region:
		return solidRegion(b, white), nil
	case cfg.Direction.Region:
		return arrowRegion(b, 96, 104), nil
	case cfg.Turn.PlayerRegion:
		g.playerSamples++
		return solidRegion(b, shirtRed), nil
	case cfg.Turn.FinishedRegion:
		if g.finishedAfter > 0 && g.playerSamples >= g.finishedAfter {
			return solidRegion(b, modalBlue), nil
		}
		return solidRegion(b, black), nil
	default:
		return solidRegion(b, black), nil
	}
}

// fakeFrontend is a Frontend backed by fakeGame.
type fakeFrontend struct {
	*fakeGame
	startErr   error
	startPanic any

	mu      sync.Mutex
	started bool
	closed  bool
}

func (f *fakeFrontend) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	if f.startPanic != nil {
		panic(f.startPanic)
	}
	return f.startErr
}

func (f *fakeFrontend) CheckCanvasExists(ctx context.Context) bool { return true }

func (f *fakeFrontend) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeFrontend) CanvasRect(ctx context.Context) (CanvasRect, error) {
	return CanvasRect{Width: 1000, Height: 1000}, nil
}

func (f *fakeFrontend) MouseDown(ctx context.Context, x, y float64) error { return nil }

func (f *fakeFrontend) MouseUp(ctx context.Context, x, y float64) error { return nil }

func (f *fakeFrontend) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
