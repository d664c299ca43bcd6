// Package main - action.go
//
// This file implements synthetic pointer input on the game canvas.
//
// Key Responsibilities:
//   - Jitter each logical click target by a few pixels
//   - Scale logical coordinates onto the rendered canvas rectangle
//   - Press, hold for a randomized duration, release
//   - Keep a short action log for the tray and debug output
//
// Architecture:
// The Dispatcher only knows a PointerDevice. In production that is the chromedp
// Browser, which sends CDP Input.dispatchMouseEvent so the events reach the canvas
// even when the window is in the background. Tests use a recording device.
//
// Clicks are fire-and-forget for the control loop: a failed click is logged and
// returned but never aborts a phase.
package main

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InputSink accepts clicks in logical canvas coordinates.
type InputSink interface {
	Click(ctx context.Context, p Point) error
}

// CanvasRect is the canvas bounding rectangle in CSS pixels.
type CanvasRect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// PointerDevice delivers raw mouse events in client coordinates.
type PointerDevice interface {
	CanvasRect(ctx context.Context) (CanvasRect, error)
	MouseDown(ctx context.Context, x, y float64) error
	MouseUp(ctx context.Context, x, y float64) error
}

// clickMarker is implemented by devices that can visualize a click.
type clickMarker interface {
	DrawClickMarker(x, y float64) error
}

// ActionLog represents a recorded action for debug display.
type ActionLog struct {
	Message   string
	Timestamp time.Time
}

const actionLogSize = 10

// Dispatcher turns logical clicks into device events.
type Dispatcher struct {
	device   PointerDevice
	cfg      InputConfig
	logicalW int
	pacer    *Pacer
	logger   *Logger
	stats    *Statistics
	debug    bool

	logMutex   sync.RWMutex
	actionLogs []ActionLog
}

// NewDispatcher creates a dispatcher for the given device.
func NewDispatcher(device PointerDevice, cfg *Config, pacer *Pacer, stats *Statistics, logger *Logger) *Dispatcher {
	return &Dispatcher{
		device:     device,
		cfg:        cfg.Input,
		logicalW:   cfg.LogicalWidth,
		pacer:      pacer,
		logger:     logger,
		stats:      stats,
		debug:      cfg.Debug,
		actionLogs: make([]ActionLog, 0, actionLogSize),
	}
}

// Click presses and releases the primary button near logical point p.
//
// Algorithm:
//   1. Add a uniform jitter of +/- Jitter logical pixels on both axes
//   2. Read the canvas rectangle and pull the target back onto the canvas
//   3. Scale the point into client pixels
//   4. Press, hold between HoldMin and HoldMax, release
//
// The release is sent even if ctx ends during the hold so no button stays down.
func (d *Dispatcher) Click(ctx context.Context, p Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	jx := p.X + d.pacer.Between(-d.cfg.Jitter, d.cfg.Jitter)
	jy := p.Y + d.pacer.Between(-d.cfg.Jitter, d.cfg.Jitter)

	rect, err := d.device.CanvasRect(ctx)
	if err != nil {
		d.logger.Warn("Click %v: canvas rect unavailable: %v", p, err)
		return fmt.Errorf("canvas rect: %w", err)
	}
	si := NewScreenInfo(d.logicalW, rect.Left, rect.Top, rect.Width, rect.Height)
	if canvas := si.Canvas(); canvas.Size() > 0 && !canvas.Contains(Point{X: jx, Y: jy}) {
		jx = Clamp(jx, canvas.X, canvas.X+canvas.W-1)
		jy = Clamp(jy, canvas.Y, canvas.Y+canvas.H-1)
	}
	cx, cy := si.Scale(float64(jx), float64(jy))

	if err := d.device.MouseDown(ctx, cx, cy); err != nil {
		d.logger.Warn("Click %v: mouse down failed: %v", p, err)
		return fmt.Errorf("mouse down: %w", err)
	}

	hold := time.Duration(d.pacer.Between(int(d.cfg.HoldMin.Milliseconds()), int(d.cfg.HoldMax.Milliseconds()))) * time.Millisecond
	_ = d.pacer.Poll(ctx, hold)

	if err := d.device.MouseUp(context.WithoutCancel(ctx), cx, cy); err != nil {
		d.logger.Warn("Click %v: mouse up failed: %v", p, err)
		return fmt.Errorf("mouse up: %w", err)
	}

	if d.stats != nil {
		d.stats.AddClick()
	}
	if m, ok := d.device.(clickMarker); ok && d.debug {
		_ = m.DrawClickMarker(cx, cy)
	}
	d.logger.Debug("Click logical (%d, %d) -> client (%.1f, %.1f) hold %v", jx, jy, cx, cy, hold)
	d.LogAction(fmt.Sprintf("Click at (%d, %d)", jx, jy))
	return nil
}

// LogAction logs an action for debug display (keeps last 10)
func (d *Dispatcher) LogAction(message string) {
	d.logMutex.Lock()
	defer d.logMutex.Unlock()

	d.actionLogs = append(d.actionLogs, ActionLog{
		Message:   message,
		Timestamp: d.pacer.Now(),
	})

	if len(d.actionLogs) > actionLogSize {
		d.actionLogs = d.actionLogs[len(d.actionLogs)-actionLogSize:]
	}
}

// GetActionLogs returns recent action logs
func (d *Dispatcher) GetActionLogs() []ActionLog {
	d.logMutex.RLock()
	defer d.logMutex.RUnlock()

	logs := make([]ActionLog, len(d.actionLogs))
	copy(logs, d.actionLogs)
	return logs
}
