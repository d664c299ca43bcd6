// Package main - color.go
//
// Per-pixel color predicates and the RGB to HSV conversion used by the gauges.
//
// HSV follows the OpenCV 8-bit convention: hue in [0, 179], saturation and value
// in [0, 255]. Predicates are plain functions so they can be counted over a
// region with any stride.
package main

// ColorPredicate classifies one pixel.
type ColorPredicate func(r, g, b uint8) bool

// RGBToHSV converts an RGB pixel to OpenCV-scaled HSV.
func RGBToHSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	mx := max(rf, gf, bf)
	mn := min(rf, gf, bf)
	d := mx - mn

	if mx > 0 {
		s = d / mx
	}
	if d > 0 {
		switch mx {
		case rf:
			h = (gf - bf) / d
			if gf < bf {
				h += 6
			}
		case gf:
			h = (bf-rf)/d + 2
		default:
			h = (rf-gf)/d + 4
		}
		h /= 6
	}
	return h * 179, s * 255, mx * 255
}

// AllAbove matches pixels whose three channels all exceed threshold.
func AllAbove(threshold uint8) ColorPredicate {
	return func(r, g, b uint8) bool {
		return r > threshold && g > threshold && b > threshold
	}
}

// StrongRed matches the saturated red of the active player's shirt.
func StrongRed(cfg TurnConfig) ColorPredicate {
	return func(r, g, b uint8) bool {
		ri, gi, bi := int(r), int(g), int(b)
		return r > cfg.RedMin && g < cfg.RedOtherMax && b < cfg.RedOtherMax && ri > 2*gi && ri > 2*bi
	}
}

// ModalBlue matches the blue background of the end-of-game modal.
func ModalBlue(cfg TurnConfig) ColorPredicate {
	return func(r, g, b uint8) bool {
		ri, gi, bi := int(r), int(g), int(b)
		return bi > ri+cfg.BlueMargin && bi > gi+cfg.BlueMargin && b > cfg.BlueMin
	}
}

// IndicatorBlue matches the direction arrow in HSV space.
func IndicatorBlue(cfg DirectionConfig) ColorPredicate {
	return func(r, g, b uint8) bool {
		h, s, v := RGBToHSV(r, g, b)
		return h >= cfg.HueMin && h <= cfg.HueMax && s >= cfg.SatMin && v >= cfg.ValMin
	}
}

// CountMatching counts matching pixels of a region.
func CountMatching(region *PixelRegion, pred ColorPredicate) int {
	if !region.Valid() {
		return 0
	}
	n := 0
	for i := 0; i+3 < len(region.Pix); i += 4 {
		if pred(region.Pix[i], region.Pix[i+1], region.Pix[i+2]) {
			n++
		}
	}
	return n
}

// MatchRatio returns the fraction of region pixels matching pred, 0 for an empty region.
func MatchRatio(region *PixelRegion, pred ColorPredicate) float64 {
	if !region.Valid() {
		return 0
	}
	return float64(CountMatching(region, pred)) / float64(region.Pixels())
}
