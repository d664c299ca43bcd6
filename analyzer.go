// Package main - analyzer.go
//
// This file implements pin detection on the pin-deck region.
//
// Pin Detection Algorithm:
//   1. Histogram: for every column inside the side margins, count tip-white pixels
//      in the top ScanHeight rows, sampling every RowStride-th row
//   2. Smoothing: moving average with half-window SmoothRadius; columns closer than
//      the radius to either edge stay zero
//   3. Peaks: a column is a peak when its smoothed value exceeds PeakMin, is
//      strictly greater than its left neighbor and not smaller than its right
//      neighbor (flat tops resolve to their leftmost column)
//   4. Debounce: a peak is kept only if it lies more than MinSeparation columns to
//      the right of the last kept peak
//
// Only the top band is scanned because pin heads are separated there even when the
// bodies overlap in perspective. Each kept peak is roughly one standing pin.
package main

// PeakSet is the result of one pin scan.
//
// Peaks holds x offsets relative to the region's left edge, strictly ascending and
// pairwise more than MinSeparation apart. Smoothed is kept for diagnostics.
type PeakSet struct {
	Peaks    []int
	Smoothed []float64
}

// PinFieldAnalyzer turns a pin-deck sample into pin-head x positions.
type PinFieldAnalyzer struct {
	cfg    PinConfig
	isTip  ColorPredicate
	logger *Logger
}

// NewPinFieldAnalyzer creates an analyzer for the given settings.
func NewPinFieldAnalyzer(cfg PinConfig, logger *Logger) *PinFieldAnalyzer {
	return &PinFieldAnalyzer{cfg: cfg, isTip: AllAbove(cfg.TipMin), logger: logger}
}

// ScanPins finds pin-head columns in region. A missing, malformed or too narrow
// region yields an empty PeakSet.
func (a *PinFieldAnalyzer) ScanPins(region *PixelRegion) PeakSet {
	if !region.Valid() {
		return PeakSet{}
	}

	hist := a.histogram(region)
	smoothed := smooth(hist, a.cfg.SmoothRadius)
	peaks := a.peaks(smoothed)

	a.logger.Debug("ScanPins: %d peaks %v (region %dx%d)", len(peaks), peaks, region.W, region.H)
	return PeakSet{Peaks: peaks, Smoothed: smoothed}
}

func (a *PinFieldAnalyzer) histogram(region *PixelRegion) []float64 {
	w := region.W
	hist := make([]float64, w)
	rows := min(a.cfg.ScanHeight, region.H)

	for x := a.cfg.Margin; x < w-a.cfg.Margin; x++ {
		for y := 0; y < rows; y += a.cfg.RowStride {
			if a.isTip(region.At(x, y)) {
				hist[x]++
			}
		}
	}
	return hist
}

// smooth applies a centered moving average of width 2*radius+1.
func smooth(hist []float64, radius int) []float64 {
	w := len(hist)
	out := make([]float64, w)
	span := float64(2*radius + 1)

	for x := radius; x < w-radius; x++ {
		sum := 0.0
		for i := -radius; i <= radius; i++ {
			sum += hist[x+i]
		}
		out[x] = sum / span
	}
	return out
}

func (a *PinFieldAnalyzer) peaks(s []float64) []int {
	var peaks []int
	lo := max(a.cfg.Margin, 1)
	hi := min(len(s)-a.cfg.Margin, len(s)-1)

	for x := lo; x < hi; x++ {
		if s[x] <= a.cfg.PeakMin || s[x] <= s[x-1] || s[x] < s[x+1] {
			continue
		}
		if len(peaks) == 0 || x-peaks[len(peaks)-1] > a.cfg.MinSeparation {
			peaks = append(peaks, x)
		}
	}
	return peaks
}
