// Package main - config.go
//
// This file holds every tunable the agent uses: regions of interest, color
// thresholds, timeouts, poll intervals, click coordinates and browser options.
//
// Configuration is read from lane-bot.yaml (YAML, so plain JSON works too) on top of
// DefaultConfig(). A missing file is not an error. Validate() clamps values to
// safe ranges and rejects regions that cannot be sampled.
//
// All coordinates are in the logical canvas space (LogicalWidth wide, scaled uniformly).
// Durations are written as Go duration strings ("500ms", "20s").
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BrowserConfig controls the chromedp browser of each session.
type BrowserConfig struct {
	Headless        bool          `yaml:"headless"`
	Width           int           `yaml:"width"`
	Height          int           `yaml:"height"`
	ProfilesDir     string        `yaml:"profiles_dir"`
	CanvasSelector  string        `yaml:"canvas_selector"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
	SampleTimeout   time.Duration `yaml:"sample_timeout"`
	KeepAlive       bool          `yaml:"keep_alive"`
	MediaVolume     float64       `yaml:"media_volume"`
}

// LogConfig controls the Debug.log writer.
type LogConfig struct {
	Path    string `yaml:"path"`
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// InputConfig shapes synthetic clicks and settle delays.
type InputConfig struct {
	Jitter     int           `yaml:"jitter"`      // +/- logical pixels added to each click
	HoldMin    time.Duration `yaml:"hold_min"`    // press-to-release lower bound
	HoldMax    time.Duration `yaml:"hold_max"`    // press-to-release upper bound
	WaitJitter float64       `yaml:"wait_jitter"` // fraction applied to settle delays
	MinWait    time.Duration `yaml:"min_wait"`    // floor for jittered delays
}

// PinConfig drives the pin-tip histogram scan.
type PinConfig struct {
	Region        Bounds  `yaml:"region"`
	ScanHeight    int     `yaml:"scan_height"`
	RowStride     int     `yaml:"row_stride"`
	Margin        int     `yaml:"margin"`
	TipMin        uint8   `yaml:"tip_min"`
	SmoothRadius  int     `yaml:"smooth_radius"`
	PeakMin       float64 `yaml:"peak_min"`
	MinSeparation int     `yaml:"min_separation"`
}

// AimConfig drives target selection from peaks.
type AimConfig struct {
	FullRack      int     `yaml:"full_rack"`
	PocketOffset  float64 `yaml:"pocket_offset"`
	CompactSpread int     `yaml:"compact_spread"`
	ClusterGap    int     `yaml:"cluster_gap"`
}

// AlignConfig drives the dead-reckoning alignment loop.
type AlignConfig struct {
	StartOffset float64       `yaml:"start_offset"`
	Deadband    float64       `yaml:"deadband"`
	RightBias   float64       `yaml:"right_bias"`
	LeftBias    float64       `yaml:"left_bias"`
	StepDivisor float64       `yaml:"step_divisor"`
	Timeout     time.Duration `yaml:"timeout"`
	Settle      time.Duration `yaml:"settle"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	LeftArrow   Point         `yaml:"left_arrow"`
	RightArrow  Point         `yaml:"right_arrow"`
}

// PowerConfig drives the power gauge.
type PowerConfig struct {
	Region        Bounds        `yaml:"region"`
	LitMin        uint8         `yaml:"lit_min"`
	FullThreshold int           `yaml:"full_threshold"`
	Poll          time.Duration `yaml:"poll"`
	Timeout       time.Duration `yaml:"timeout"`
	Start         Point         `yaml:"start"`
	Stop          Point         `yaml:"stop"`
	Fallback      Point         `yaml:"fallback"`
}

// DirectionConfig drives the direction gauge.
type DirectionConfig struct {
	Region    Bounds        `yaml:"region"`
	Stride    int           `yaml:"stride"`
	HueMin    float64       `yaml:"hue_min"`
	HueMax    float64       `yaml:"hue_max"`
	SatMin    float64       `yaml:"sat_min"`
	ValMin    float64       `yaml:"val_min"`
	MinCount  int           `yaml:"min_count"`
	Center    float64       `yaml:"center"`
	Tolerance float64       `yaml:"tolerance"`
	Poll      time.Duration `yaml:"poll"`
	Timeout   time.Duration `yaml:"timeout"`
	Settle    time.Duration `yaml:"settle"`
	Fire      Point         `yaml:"fire"`
}

// TurnConfig drives the turn-state detector.
type TurnConfig struct {
	PlayerRegion   Bounds        `yaml:"player_region"`
	FinishedRegion Bounds        `yaml:"finished_region"`
	Poll           time.Duration `yaml:"poll"`
	Timeout        time.Duration `yaml:"timeout"`
	RedRatio       float64       `yaml:"red_ratio"`
	RedMin         uint8         `yaml:"red_min"`
	RedOtherMax    uint8         `yaml:"red_other_max"`
	BlueRatio      float64       `yaml:"blue_ratio"`
	BlueMargin     int           `yaml:"blue_margin"`
	BlueMin        uint8         `yaml:"blue_min"`
	WhiteMin       uint8         `yaml:"white_min"`
	LogBlueRatio   float64       `yaml:"log_blue_ratio"`
	LogWhiteRatio  float64       `yaml:"log_white_ratio"`
}

// SetupStep is one overlay-dismissal action executed during SETUP.
//
// Kind "scan" polls a Window x Window area around At until more than Ratio of
// its pixels exceed WhiteMin on every channel, clicks At once found, and gives
// up silently after Timeout. Kind "click" clicks At unconditionally.
type SetupStep struct {
	Name     string        `yaml:"name"`
	Kind     string        `yaml:"kind"`
	At       Point         `yaml:"at"`
	Window   int           `yaml:"window"`
	WhiteMin uint8         `yaml:"white_min"`
	Ratio    float64       `yaml:"ratio"`
	Timeout  time.Duration `yaml:"timeout"`
	Poll     time.Duration `yaml:"poll"`
	Settle   time.Duration `yaml:"settle"`
}

// SetupConfig drives the SETUP phase.
type SetupConfig struct {
	Probe      Bounds        `yaml:"probe"`
	ProbeRetry time.Duration `yaml:"probe_retry"`
	Settle     time.Duration `yaml:"settle"`
	Steps      []SetupStep   `yaml:"steps"`
}

// RoundConfig holds PLAY_ROUND delays that are not owned by a component.
type RoundConfig struct {
	StartSettle time.Duration `yaml:"start_settle"`
	PostShot    time.Duration `yaml:"post_shot"`
}

// Config holds all agent settings
type Config struct {
	GameURL       string        `yaml:"game_url"`
	LogicalWidth  int           `yaml:"logical_width"`
	LaunchStagger time.Duration `yaml:"launch_stagger"`
	Debug         bool          `yaml:"debug"`

	Browser   BrowserConfig   `yaml:"browser"`
	Log       LogConfig       `yaml:"log"`
	Input     InputConfig     `yaml:"input"`
	Pins      PinConfig       `yaml:"pins"`
	Aim       AimConfig       `yaml:"aim"`
	Align     AlignConfig     `yaml:"align"`
	Power     PowerConfig     `yaml:"power"`
	Direction DirectionConfig `yaml:"direction"`
	Turn      TurnConfig      `yaml:"turn"`
	Setup     SetupConfig     `yaml:"setup"`
	Round     RoundConfig     `yaml:"round"`
}

// DefaultConfig returns a Config tuned for the 1000x1000 bowling canvas.
func DefaultConfig() *Config {
	return &Config{
		GameURL:       "about:blank",
		LogicalWidth:  1000,
		LaunchStagger: 3 * time.Second,

		Browser: BrowserConfig{
			Headless:        false,
			Width:           1000,
			Height:          1100,
			ProfilesDir:     "profiles",
			CanvasSelector:  "canvas",
			NavigateTimeout: 60 * time.Second,
			SampleTimeout:   2 * time.Second,
			KeepAlive:       true,
			MediaVolume:     0.02,
		},
		Log: LogConfig{
			Path:    "Debug.log",
			Level:   "debug",
			Console: true,
		},
		Input: InputConfig{
			Jitter:     3,
			HoldMin:    30 * time.Millisecond,
			HoldMax:    80 * time.Millisecond,
			WaitJitter: 0.2,
			MinWait:    50 * time.Millisecond,
		},
		Pins: PinConfig{
			Region:        Bounds{X: 355, Y: 400, W: 80, H: 70},
			ScanHeight:    40,
			RowStride:     2,
			Margin:        10,
			TipMin:        160,
			SmoothRadius:  4,
			PeakMin:       2,
			MinSeparation: 10,
		},
		Aim: AimConfig{
			FullRack:      10,
			PocketOffset:  15,
			CompactSpread: 50,
			ClusterGap:    30,
		},
		Align: AlignConfig{
			StartOffset: 35,
			Deadband:    2.5,
			RightBias:   17.5,
			LeftBias:    15.5,
			StepDivisor: 18,
			Timeout:     20 * time.Second,
			Settle:      time.Second,
			RetryDelay:  50 * time.Millisecond,
			LeftArrow:   Point{X: 130, Y: 720},
			RightArrow:  Point{X: 870, Y: 720},
		},
		Power: PowerConfig{
			Region:        Bounds{X: 40, Y: 600, W: 100, H: 600},
			LitMin:        200,
			FullThreshold: 1380,
			Poll:          60 * time.Millisecond,
			Timeout:       5 * time.Second,
			Start:         Point{X: 500, Y: 500},
			Stop:          Point{X: 500, Y: 500},
			Fallback:      Point{X: 500, Y: 420},
		},
		Direction: DirectionConfig{
			Region:    Bounds{X: 580, Y: 700, W: 200, H: 200},
			Stride:    4,
			HueMin:    95,
			HueMax:    125,
			SatMin:    150,
			ValMin:    100,
			MinCount:  10,
			Center:    100,
			Tolerance: 1.5,
			Poll:      30 * time.Millisecond,
			Timeout:   10 * time.Second,
			Settle:    time.Second,
			Fire:      Point{X: 500, Y: 420},
		},
		Turn: TurnConfig{
			PlayerRegion:   Bounds{X: 250, Y: 1090, W: 150, H: 150},
			FinishedRegion: Bounds{X: 200, Y: 400, W: 600, H: 400},
			Poll:           200 * time.Millisecond,
			Timeout:        60 * time.Second,
			RedRatio:       0.35,
			RedMin:         90,
			RedOtherMax:    50,
			BlueRatio:      0.30,
			BlueMargin:     30,
			BlueMin:        80,
			WhiteMin:       210,
			LogBlueRatio:   0.1,
			LogWhiteRatio:  0.05,
		},
		Setup: SetupConfig{
			Probe:      Bounds{X: 500, Y: 500, W: 10, H: 10},
			ProbeRetry: 2 * time.Second,
			Settle:     2 * time.Second,
			Steps: []SetupStep{
				{Name: "intro", Kind: StepScan, At: Point{X: 400, Y: 500}, Window: 20, WhiteMin: 200, Ratio: 0.3,
					Timeout: 15 * time.Second, Poll: 200 * time.Millisecond, Settle: time.Second},
				{Name: "play", Kind: StepClick, At: Point{X: 500, Y: 700}, Settle: time.Second},
				{Name: "hint", Kind: StepClick, At: Point{X: 500, Y: 750}, Settle: time.Second},
			},
		},
		Round: RoundConfig{
			StartSettle: 500 * time.Millisecond,
			PostShot:    8 * time.Second,
		},
	}
}

// Setup step kinds.
const (
	StepScan  = "scan"
	StepClick = "click"
)

// Validate clamps/normalizes values to safe ranges.
//
// Regions with a non-positive size and unknown setup step kinds are reported as
// errors since no clamp can make them meaningful.
func (c *Config) Validate() error {
	if c.LogicalWidth <= 0 {
		c.LogicalWidth = 1000
	}
	if c.LaunchStagger < 0 {
		c.LaunchStagger = 0
	}
	if c.Browser.CanvasSelector == "" {
		c.Browser.CanvasSelector = "canvas"
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 60 * time.Second
	}
	if c.Browser.SampleTimeout <= 0 {
		c.Browser.SampleTimeout = 2 * time.Second
	}
	c.Browser.MediaVolume = ClampFloat(c.Browser.MediaVolume, 0, 1)
	if c.Log.Path == "" {
		c.Log.Path = "Debug.log"
	}

	if c.Input.Jitter < 0 {
		c.Input.Jitter = 0
	}
	if c.Input.HoldMax < c.Input.HoldMin {
		c.Input.HoldMax = c.Input.HoldMin
	}
	c.Input.WaitJitter = ClampFloat(c.Input.WaitJitter, 0, 0.9)

	if c.Pins.RowStride <= 0 {
		c.Pins.RowStride = 2
	}
	if c.Pins.SmoothRadius < 0 {
		c.Pins.SmoothRadius = 0
	}
	if c.Pins.MinSeparation < 0 {
		c.Pins.MinSeparation = 0
	}
	if c.Align.StepDivisor <= 0 {
		c.Align.StepDivisor = 18
	}
	if c.Align.Deadband < 0 {
		c.Align.Deadband = -c.Align.Deadband
	}
	if c.Direction.Stride <= 0 {
		c.Direction.Stride = 4
	}
	c.Turn.RedRatio = ClampFloat(c.Turn.RedRatio, 0, 1)
	c.Turn.BlueRatio = ClampFloat(c.Turn.BlueRatio, 0, 1)

	for _, d := range []*time.Duration{
		&c.Align.Timeout, &c.Align.RetryDelay, &c.Power.Poll, &c.Power.Timeout,
		&c.Direction.Poll, &c.Direction.Timeout, &c.Turn.Poll, &c.Turn.Timeout,
	} {
		if *d <= 0 {
			*d = 50 * time.Millisecond
		}
	}

	var errs []error
	regions := map[string]Bounds{
		"pins.region":          c.Pins.Region,
		"power.region":         c.Power.Region,
		"direction.region":     c.Direction.Region,
		"turn.player_region":   c.Turn.PlayerRegion,
		"turn.finished_region": c.Turn.FinishedRegion,
		"setup.probe":          c.Setup.Probe,
	}
	for name, r := range regions {
		if r.W <= 0 || r.H <= 0 {
			errs = append(errs, fmt.Errorf("%s: empty region %dx%d", name, r.W, r.H))
		}
	}
	for i := range c.Setup.Steps {
		step := &c.Setup.Steps[i]
		step.Kind = strings.ToLower(step.Kind)
		switch step.Kind {
		case StepScan:
			if step.Window <= 0 {
				step.Window = 20
			}
			if step.Poll <= 0 {
				step.Poll = 200 * time.Millisecond
			}
		case StepClick:
		default:
			errs = append(errs, fmt.Errorf("setup.steps[%d]: unknown kind %q", i, step.Kind))
		}
	}
	return errors.Join(errs...)
}

// Load reads configuration from the given YAML file path. If the file does not
// exist it returns DefaultConfig().
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
