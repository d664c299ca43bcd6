// Package main - aim.go
//
// AimSelector turns detected pin heads into one horizontal target inside the
// pin-deck region. The first matching rule wins:
//
//   1. No pins: aim at the region center
//   2. One pin: aim straight at it
//   3. Full rack (FullRack or more pins): find the head pin closest to the center
//      and aim at the pocket between it and its right neighbor, or PocketOffset to
//      its right when it has none
//   4. Compact group (spread below CompactSpread): aim at the mean
//   5. Scattered: split into clusters at gaps wider than ClusterGap, prefer the
//      largest cluster, break ties by closeness to the center, aim at its mean
package main

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// AimSelector picks the target x from a set of pin peaks.
type AimSelector struct {
	cfg AimConfig
}

// NewAimSelector creates a selector for the given settings.
func NewAimSelector(cfg AimConfig) *AimSelector {
	return &AimSelector{cfg: cfg}
}

// Select returns the target x offset for peaks found in a region of the given width.
// The peaks slice is not modified.
func (s *AimSelector) Select(peaks []int, width int) float64 {
	center := float64(width) / 2
	if len(peaks) == 0 {
		return center
	}

	pins := slices.Clone(peaks)
	slices.Sort(pins)

	if len(pins) == 1 {
		return float64(pins[0])
	}

	if len(pins) >= s.cfg.FullRack {
		head := 0
		best := math.Inf(1)
		for i, p := range pins {
			if d := math.Abs(float64(p) - center); d < best {
				best = d
				head = i
			}
		}
		if head+1 < len(pins) {
			return float64(pins[head]+pins[head+1]) / 2
		}
		return float64(pins[head]) + s.cfg.PocketOffset
	}

	if pins[len(pins)-1]-pins[0] < s.cfg.CompactSpread {
		return mean(pins)
	}

	clusters := groupClusters(pins, s.cfg.ClusterGap)
	sort.SliceStable(clusters, func(i, j int) bool {
		if len(clusters[i]) != len(clusters[j]) {
			return len(clusters[i]) > len(clusters[j])
		}
		return math.Abs(mean(clusters[i])-center) < math.Abs(mean(clusters[j])-center)
	})
	return mean(clusters[0])
}

// groupClusters splits sorted pins into maximal runs whose neighbor gaps are at
// most gap. Concatenating the result yields pins again.
func groupClusters(pins []int, gap int) [][]int {
	if len(pins) == 0 {
		return nil
	}
	var clusters [][]int
	current := []int{pins[0]}
	for i := 1; i < len(pins); i++ {
		if pins[i]-pins[i-1] > gap {
			clusters = append(clusters, current)
			current = nil
		}
		current = append(current, pins[i])
	}
	return append(clusters, current)
}

func mean(values []int) float64 {
	xs := make([]float64, len(values))
	for i, v := range values {
		xs[i] = float64(v)
	}
	return stat.Mean(xs, nil)
}
