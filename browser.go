// Package main - browser.go
//
// This file implements the Browser controller that drives one chromedp instance per
// session. It is both the FrameSource and the PointerDevice of a live session.
//
// Key Responsibilities:
//   - Chromedp browser lifecycle management (start, navigate, close)
//   - Per-account profile directory so sessions never share storage
//   - Canvas sampling in logical coordinates via JavaScript getImageData
//   - Screenshot-clip fallback when the canvas cannot be read from script
//   - CDP mouse events for the dispatcher
//
// Browser Architecture:
// The Browser uses nested contexts for proper resource management:
//   - allocCtx: Allocator context for browser process management
//   - ctx: Browser context for page operations
// The allocator is derived from the session context, so cancelling a session
// tears its browser down.
//
// Timeout Strategy:
//   - Navigation: NavigateTimeout (60 seconds by default)
//   - Sampling, rect queries and mouse events: SampleTimeout (2 seconds by default)
//
// Background Throttling:
// Sessions run side by side and most windows are occluded, so timer throttling,
// renderer backgrounding and tab freezing are disabled. Without that the gauges
// would be polled at one sample per second.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"path/filepath"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Browser manages the chromedp browser instance for one session.
//
// Lifecycle:
//   1. NewBrowser(): Create instance bound to a profile directory
//   2. Start(): Launch the browser and navigate to the game URL
//   3. Sample()/MouseDown()/MouseUp(): Used by analyzers and the dispatcher
//   4. Close(): Clean up contexts and browser process
type Browser struct {
	cfg        BrowserConfig
	gameURL    string
	logicalW   int
	profileDir string
	log        *Logger

	ctx         context.Context
	cancel      context.CancelFunc
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewBrowser creates a new browser instance using profile as its user data dir name.
func NewBrowser(cfg *Config, profile string, logger *Logger) *Browser {
	return &Browser{
		cfg:        cfg.Browser,
		gameURL:    cfg.GameURL,
		logicalW:   cfg.LogicalWidth,
		profileDir: filepath.Join(cfg.Browser.ProfilesDir, profile),
		log:        logger,
	}
}

// Start launches chromedp and navigates to the game URL.
//
// Algorithm:
//   1. Create exec allocator context with browser options:
//      - headless per configuration, GPU enabled
//      - automation detection flags disabled
//      - background throttling disabled
//      - isolated user data dir
//   2. Create browser context with logger bridge
//   3. Navigate to the game URL with NavigateTimeout
//   4. Install the audio keep-alive and media volume limit (KeepAlive)
func (b *Browser) Start(parent context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", false),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-features", "TabFreeze"),
		chromedp.UserDataDir(b.profileDir),
		chromedp.WindowSize(b.cfg.Width, b.cfg.Height),
	)

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(parent, opts...)
	b.log.Info("Browser allocator context created (profile %s)", b.profileDir)

	b.ctx, b.cancel = chromedp.NewContext(b.allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		b.log.Debug(format, args...)
	}))

	b.log.Info("Navigating to %s", b.gameURL)
	navCtx, navCancel := context.WithTimeout(b.ctx, b.cfg.NavigateTimeout)
	defer navCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(b.gameURL)); err != nil {
		b.log.Error("Navigation error: %v", err)
		return fmt.Errorf("navigate %s: %w", b.gameURL, err)
	}

	b.log.Info("Navigation completed successfully")

	if b.cfg.KeepAlive {
		if err := b.run(parent, chromedp.Evaluate(keepAliveScript(b.cfg.MediaVolume), nil)); err != nil {
			b.log.Warn("Audio keep-alive not installed: %v", err)
		} else {
			b.log.Info("Audio keep-alive installed (media volume %.0f%%)", b.cfg.MediaVolume*100)
		}
	}
	return nil
}

// keepAliveJS plays a near-silent oscillator so the tab counts as audible and is
// not throttled, and caps every audio/video element at the given volume.
const keepAliveJS = `
(function(vol) {
	if (window.__laneKeepAlive) return;
	window.__laneKeepAlive = true;

	const AC = window.AudioContext || window.webkitAudioContext;
	if (AC) {
		const ctx = new AC();
		const osc = ctx.createOscillator();
		const gain = ctx.createGain();
		osc.frequency.value = 100;
		gain.gain.value = 0.001;
		osc.connect(gain);
		gain.connect(ctx.destination);
		osc.start();
		setInterval(() => { if (ctx.state === 'suspended') ctx.resume(); }, 5000);
	}

	const tame = () => document.querySelectorAll('audio, video').forEach(el => {
		if (el.volume > vol) el.volume = vol;
	});
	setInterval(tame, 1000);
	const play = HTMLMediaElement.prototype.play;
	HTMLMediaElement.prototype.play = function() {
		this.volume = Math.min(this.volume, vol);
		return play.apply(this, arguments);
	};
})(%g);
`

func keepAliveScript(volume float64) string {
	return fmt.Sprintf(keepAliveJS, volume)
}

func (b *Browser) valid() bool {
	return b.ctx != nil && b.ctx.Err() == nil
}

// run executes actions with the sample timeout, bound to both ctx and the browser.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	if !b.valid() {
		return fmt.Errorf("%w: browser context is invalid", ErrFrameUnavailable)
	}
	runCtx, cancel := context.WithTimeout(b.ctx, b.cfg.SampleTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// CheckCanvasExists checks if the game canvas element exists in the page
func (b *Browser) CheckCanvasExists(ctx context.Context) bool {
	var exists bool
	js := fmt.Sprintf(`document.querySelector(%q) !== null`, b.cfg.CanvasSelector)
	if err := b.run(ctx, chromedp.Evaluate(js, &exists)); err != nil {
		b.log.Debug("Failed to check canvas existence: %v", err)
		return false
	}
	return exists
}

// sampleJS copies a logical region of the canvas into a scratch 2D canvas and
// returns its RGBA bytes as base64, or '' when the canvas is missing or tainted.
// One logical pixel maps to canvas.width/logicalW backing pixels on both axes.
const sampleJS = `
(function(sel, lw, x, y, w, h) {
	const c = document.querySelector(sel);
	if (!c || !c.width) return '';
	try {
		const s = c.width / lw;
		const t = document.createElement('canvas');
		t.width = w;
		t.height = h;
		const tc = t.getContext('2d');
		tc.imageSmoothingEnabled = false;
		tc.drawImage(c, x * s, y * s, w * s, h * s, 0, 0, w, h);
		const d = tc.getImageData(0, 0, w, h).data;
		let out = '';
		for (let i = 0; i < d.length; i += 0x8000) {
			out += String.fromCharCode.apply(null, d.subarray(i, i + 0x8000));
		}
		return btoa(out);
	} catch (e) {
		return '';
	}
})(%q, %d, %d, %d, %d, %d)`

// Sample reads a logical region of the canvas.
//
// The page script path is tried first. If it yields nothing the region is cut out
// of a clipped screenshot instead and resampled to the requested size.
func (b *Browser) Sample(ctx context.Context, bounds Bounds) (*PixelRegion, error) {
	if bounds.W <= 0 || bounds.H <= 0 {
		return nil, fmt.Errorf("%w: empty region %v", ErrFrameUnavailable, bounds)
	}

	var encoded string
	js := fmt.Sprintf(sampleJS, b.cfg.CanvasSelector, b.logicalW, bounds.X, bounds.Y, bounds.W, bounds.H)
	if err := b.run(ctx, chromedp.Evaluate(js, &encoded)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameUnavailable, err)
	}

	if encoded != "" {
		pix, err := base64.StdEncoding.DecodeString(encoded)
		if err == nil && len(pix) == bounds.W*bounds.H*4 {
			return &PixelRegion{X: bounds.X, Y: bounds.Y, W: bounds.W, H: bounds.H, Pix: pix}, nil
		}
		b.log.Debug("Sample %v: bad canvas payload (%d bytes, err=%v)", bounds, len(pix), err)
	}

	return b.sampleScreenshot(ctx, bounds)
}

func (b *Browser) sampleScreenshot(ctx context.Context, bounds Bounds) (*PixelRegion, error) {
	rect, err := b.CanvasRect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameUnavailable, err)
	}
	si := NewScreenInfo(b.logicalW, rect.Left, rect.Top, rect.Width, rect.Height)
	x0, y0 := si.Scale(float64(bounds.X), float64(bounds.Y))
	x1, y1 := si.Scale(float64(bounds.X+bounds.W), float64(bounds.Y+bounds.H))

	var buf []byte
	err = b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(&page.Viewport{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0, Scale: 1}).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot: %v", ErrFrameUnavailable, err)
	}

	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%w: decode screenshot: %v", ErrFrameUnavailable, err)
	}
	return resampleInto(img, bounds), nil
}

// resampleInto scales img to bounds.W x bounds.H with nearest-neighbour lookup.
func resampleInto(img image.Image, bounds Bounds) *PixelRegion {
	region := NewPixelRegion(bounds)
	ib := img.Bounds()
	if ib.Empty() {
		return region
	}
	scaled := image.NewRGBA(image.Rect(0, 0, bounds.W, bounds.H))
	for y := 0; y < bounds.H; y++ {
		sy := ib.Min.Y + y*ib.Dy()/bounds.H
		for x := 0; x < bounds.W; x++ {
			sx := ib.Min.X + x*ib.Dx()/bounds.W
			scaled.Set(x, y, img.At(sx, sy))
		}
	}
	copy(region.Pix, scaled.Pix)
	return region
}

// CanvasRect returns the canvas bounding rectangle in CSS pixels.
func (b *Browser) CanvasRect(ctx context.Context) (CanvasRect, error) {
	var rect CanvasRect
	js := fmt.Sprintf(`(function() {
		const c = document.querySelector(%q);
		if (!c) return {Left: 0, Top: 0, Width: 0, Height: 0};
		const r = c.getBoundingClientRect();
		return {Left: r.left, Top: r.top, Width: r.width, Height: r.height};
	})()`, b.cfg.CanvasSelector)

	if err := b.run(ctx, chromedp.Evaluate(js, &rect)); err != nil {
		return rect, err
	}
	if rect.Width <= 0 || rect.Height <= 0 {
		return rect, fmt.Errorf("canvas %q not found", b.cfg.CanvasSelector)
	}
	return rect, nil
}

// MouseDown moves the pointer to (x, y) and presses the left button.
func (b *Browser) MouseDown(ctx context.Context, x, y float64) error {
	return b.run(ctx,
		chromedp.MouseEvent(input.MouseMoved, x, y),
		chromedp.MouseEvent(input.MousePressed, x, y, chromedp.ButtonType(input.Left), chromedp.ClickCount(1)),
	)
}

// MouseUp releases the left button at (x, y).
func (b *Browser) MouseUp(ctx context.Context, x, y float64) error {
	return b.run(ctx,
		chromedp.MouseEvent(input.MouseReleased, x, y, chromedp.ButtonType(input.Left), chromedp.ClickCount(1)),
	)
}

// Close closes the browser
func (b *Browser) Close() {
	b.log.Info("Closing browser...")
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.log.Info("Browser closed successfully")
}
