package main

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAimSelect(t *testing.T) {
	aim := NewAimSelector(DefaultConfig().Aim)

	tests := []struct {
		name  string
		peaks []int
		width int
		want  float64
	}{
		{"no pins aims at center", nil, 80, 40},
		{"single pin", []int{17}, 80, 17},
		{"compact group mean", []int{30, 40, 50}, 80, 40},
		{"largest cluster wins", []int{5, 8, 50, 53, 56}, 80, 53},
		{"unsorted input", []int{56, 5, 53, 8, 50}, 80, 53},
		{"equal clusters prefer center", []int{0, 5, 70, 75}, 80, 72.5},
		{"full rack pocket", []int{14, 21, 28, 35, 42, 49, 56, 63, 70, 77}, 80, 45.5},
		{"full rack head at right edge", []int{10, 12, 14, 16, 18, 20, 22, 24, 26, 28}, 80, 43},
		{"largest cluster wins on 100 wide lane", []int{5, 8, 50, 53, 56}, 100, 53},
		{"full rack head at right edge on 100 wide lane", []int{10, 12, 14, 16, 18, 20, 22, 24, 26, 28}, 100, 43},
		{"no pins on 100 wide lane", nil, 100, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, aim.Select(tt.peaks, tt.width), 1e-9)
		})
	}
}

func TestAimSelectTieKeepsFirstCluster(t *testing.T) {
	aim := NewAimSelector(DefaultConfig().Aim)

	// Both clusters have two pins and sit 27.5 from the center.
	assert.InDelta(t, 12.5, aim.Select([]int{10, 15, 65, 70}, 80), 1e-9)
}

func TestAimSelectDoesNotMutatePeaks(t *testing.T) {
	aim := NewAimSelector(DefaultConfig().Aim)
	peaks := []int{56, 5, 53, 8, 50}
	orig := slices.Clone(peaks)

	aim.Select(peaks, 80)

	assert.Equal(t, orig, peaks)
}

func TestAimSelectFullRackTargetsPocket(t *testing.T) {
	aim := NewAimSelector(DefaultConfig().Aim)
	rng := rand.New(rand.NewPCG(7, 11))

	for i := 0; i < 500; i++ {
		pins := make([]int, 10+rng.IntN(6))
		for j := range pins {
			pins[j] = rng.IntN(100)
		}
		slices.Sort(pins)

		nearest := math.Inf(1)
		for _, p := range pins {
			nearest = math.Min(nearest, math.Abs(float64(p)-50))
		}

		target := aim.Select(pins, 100)
		ok := false
		for h, p := range pins {
			if math.Abs(float64(p)-50) != nearest {
				continue
			}
			if h+1 < len(pins) {
				ok = ok || (target == float64(p+pins[h+1])/2 && float64(p) <= target && target <= float64(pins[h+1]))
			} else {
				ok = ok || target == float64(p)+15
			}
		}
		require.True(t, ok, "pins %v: target %v is not the pocket right of the head pin", pins, target)
	}
}

func TestAimSelectCompactGroupIsMean(t *testing.T) {
	aim := NewAimSelector(DefaultConfig().Aim)
	rng := rand.New(rand.NewPCG(13, 17))

	for i := 0; i < 500; i++ {
		base := rng.IntN(50)
		pins := make([]int, 2+rng.IntN(8))
		sum := 0
		for j := range pins {
			pins[j] = base + rng.IntN(50)
			sum += pins[j]
		}

		require.InDelta(t, float64(sum)/float64(len(pins)), aim.Select(pins, 100), 1e-9, "pins %v", pins)
	}
}

func TestGroupClusters(t *testing.T) {
	got := groupClusters([]int{5, 8, 50, 53, 56, 100}, 30)
	want := [][]int{{5, 8}, {50, 53, 56}, {100}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("clusters mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, groupClusters(nil, 30))
}

func TestGroupClustersPartition(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))

	for i := 0; i < 200; i++ {
		pins := make([]int, 1+rng.IntN(12))
		for j := range pins {
			pins[j] = rng.IntN(200)
		}
		slices.Sort(pins)

		clusters := groupClusters(pins, 30)
		require.Equal(t, pins, slices.Concat(clusters...))
		for k, c := range clusters {
			for j := 1; j < len(c); j++ {
				require.LessOrEqual(t, c[j]-c[j-1], 30)
			}
			if k > 0 {
				prev := clusters[k-1]
				require.Greater(t, c[0]-prev[len(prev)-1], 30)
			}
		}
	}
}
