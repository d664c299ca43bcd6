// Package main - data.go
//
// This file defines core data structures shared by the perception and control code.
//
// Major Data Categories:
//
// 1. Geometric Types:
//    - Point: 2D coordinates in the logical canvas space
//    - Bounds: Rectangles (regions of interest) with containment helpers
//
// 2. Pixel Data:
//    - PixelRegion: RGBA buffer sampled from one rectangular area of the frame
//
// 3. Statistics:
//    - Statistics: Round/game counters, fallback counters, uptime
//
// 4. Screen Information:
//    - ScreenInfo: Maps logical canvas coordinates onto the rendered canvas rectangle
//
// Coordinate Space:
// Every ROI and click target is expressed in a fixed logical space (1000x1000 by
// default). Samplers deliver pixels in that space and the dispatcher scales clicks
// from it to the rendered canvas, so analyzers never see the real window size.
package main

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"
)

// Point represents a 2D coordinate in logical canvas space.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Bounds represents a rectangular area
type Bounds struct {
	X int `yaml:"x"` // Top-left X coordinate
	Y int `yaml:"y"` // Top-left Y coordinate
	W int `yaml:"w"` // Width
	H int `yaml:"h"` // Height
}

// Size returns the area of the bounds
func (b Bounds) Size() int {
	return b.W * b.H
}

// Contains checks if a point is inside the bounds
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.X && p.X < b.X+b.W && p.Y >= b.Y && p.Y < b.Y+b.H
}

// Around returns a square window of the given size centered on p.
func Around(p Point, size int) Bounds {
	return Bounds{X: p.X - size/2, Y: p.Y - size/2, W: size, H: size}
}

// Rect converts the bounds to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// PixelRegion is an RGBA buffer sampled from one rectangular area of the frame.
//
// Pixels are row-major with 4 bytes per pixel starting at the top-left corner of
// the region, so len(Pix) == W*H*4 for any well-formed region. A region is owned
// by the caller that requested it and is never retained by a sampler.
type PixelRegion struct {
	X, Y int
	W, H int
	Pix  []byte
}

// NewPixelRegion allocates a zeroed region for the given bounds.
func NewPixelRegion(b Bounds) *PixelRegion {
	w, h := max(b.W, 0), max(b.H, 0)
	return &PixelRegion{X: b.X, Y: b.Y, W: w, H: h, Pix: make([]byte, w*h*4)}
}

// Valid reports whether the buffer length matches the declared dimensions.
func (r *PixelRegion) Valid() bool {
	return r != nil && r.W > 0 && r.H > 0 && len(r.Pix) == r.W*r.H*4
}

// At returns the RGB components at region-relative (x, y).
func (r *PixelRegion) At(x, y int) (uint8, uint8, uint8) {
	i := (y*r.W + x) * 4
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// Set writes an opaque pixel at region-relative (x, y).
func (r *PixelRegion) Set(x, y int, c color.RGBA) {
	i := (y*r.W + x) * 4
	r.Pix[i], r.Pix[i+1], r.Pix[i+2], r.Pix[i+3] = c.R, c.G, c.B, 255
}

// Fill paints a rectangle given in region-relative coordinates, clipped to the region.
func (r *PixelRegion) Fill(b Bounds, c color.RGBA) {
	for y := max(b.Y, 0); y < min(b.Y+b.H, r.H); y++ {
		for x := max(b.X, 0); x < min(b.X+b.W, r.W); x++ {
			r.Set(x, y, c)
		}
	}
}

// Pixels returns the number of pixels in the region.
func (r *PixelRegion) Pixels() int {
	return r.W * r.H
}

// Statistics holds runtime statistics for one session
type Statistics struct {
	StartTime         time.Time
	Rounds            int
	GamesFinished     int
	TurnTimeouts      int
	AlignTimeouts     int
	PowerFallbacks    int
	DirectionFallback int
	Clicks            int
	OverlaysSkipped   int
	LastRoundTime     time.Time
	mu                sync.RWMutex
}

// NewStatistics creates new statistics
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime: time.Now(),
	}
}

// AddRound records a completed round
func (s *Statistics) AddRound() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Rounds++
	s.LastRoundTime = time.Now()
}

// AddGameFinished records a game-over modal.
func (s *Statistics) AddGameFinished() {
	s.mu.Lock()
	s.GamesFinished++
	s.mu.Unlock()
}

// AddTurnTimeout records a turn wait that saw neither signal.
func (s *Statistics) AddTurnTimeout() {
	s.mu.Lock()
	s.TurnTimeouts++
	s.mu.Unlock()
}

// AddAlignTimeout records an alignment pass that ran out of time.
func (s *Statistics) AddAlignTimeout() {
	s.mu.Lock()
	s.AlignTimeouts++
	s.mu.Unlock()
}

// AddPowerFallback records a blind power-stop click.
func (s *Statistics) AddPowerFallback() {
	s.mu.Lock()
	s.PowerFallbacks++
	s.mu.Unlock()
}

// AddDirectionFallback records a blind fire click.
func (s *Statistics) AddDirectionFallback() {
	s.mu.Lock()
	s.DirectionFallback++
	s.mu.Unlock()
}

// AddOverlaySkipped records a setup overlay that never appeared.
func (s *Statistics) AddOverlaySkipped() {
	s.mu.Lock()
	s.OverlaysSkipped++
	s.mu.Unlock()
}

// AddClick counts a dispatched click.
func (s *Statistics) AddClick() {
	s.mu.Lock()
	s.Clicks++
	s.mu.Unlock()
}

// RoundsPerHour calculates completed rounds per hour
func (s *Statistics) RoundsPerHour() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	elapsed := time.Since(s.StartTime).Hours()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Rounds) / elapsed
}

// GetStats returns formatted statistics
func (s *Statistics) GetStats() (rounds, games int, rph float64, uptime string) {
	rph = s.RoundsPerHour()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rounds = s.Rounds
	games = s.GamesFinished
	uptime = FormatDuration(time.Since(s.StartTime))
	return
}

// Summary renders the counters on one line for logs and the tray.
func (s *Statistics) Summary() string {
	rounds, games, rph, uptime := s.GetStats()

	s.mu.RLock()
	defer s.mu.RUnlock()
	last := "never"
	if !s.LastRoundTime.IsZero() {
		last = FormatDuration(time.Since(s.LastRoundTime)) + " ago"
	}
	return fmt.Sprintf("rounds=%d games=%d rph=%.1f turn_timeouts=%d fallbacks(power=%d dir=%d) last_round=%s uptime=%s",
		rounds, games, rph, s.TurnTimeouts, s.PowerFallbacks, s.DirectionFallback, last, uptime)
}

// ScreenInfo maps the logical canvas space onto the rendered canvas rectangle.
//
// Left/Top/Width/Height is the canvas bounding rectangle in CSS pixels as reported
// by the page. The logical width fixes one uniform scale for both axes, so regions
// below the configured logical height (the player badge) stay addressable on
// taller canvases: clientX = left + x*width/logicalW, clientY = top + y*width/logicalW.
type ScreenInfo struct {
	LogicalW int
	Left     float64
	Top      float64
	Width    float64
	Height   float64
}

// NewScreenInfo creates screen info for the given canvas rectangle
func NewScreenInfo(logicalW int, left, top, width, height float64) *ScreenInfo {
	return &ScreenInfo{
		LogicalW: logicalW,
		Left:     left,
		Top:      top,
		Width:    width,
		Height:   height,
	}
}

// Scale converts logical coordinates into client (CSS pixel) coordinates
func (si *ScreenInfo) Scale(x, y float64) (float64, float64) {
	scale := si.Width / float64(si.LogicalW)
	return si.Left + x*scale, si.Top + y*scale
}

// Canvas returns the rendered canvas in logical coordinates.
func (si *ScreenInfo) Canvas() Bounds {
	if si.Width <= 0 {
		return Bounds{}
	}
	return Bounds{W: si.LogicalW, H: int(si.Height * float64(si.LogicalW) / si.Width)}
}
