package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{2*time.Minute + 30*time.Second, "2m 30s"},
		{time.Hour + 5*time.Minute + 7*time.Second, "1h 5m 7s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in))
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-5, 0, 10))
	assert.Equal(t, 10, Clamp(50, 0, 10))
	assert.Equal(t, 7, Clamp(7, 0, 10))
	assert.InDelta(t, 0.9, ClampFloat(2, 0, 0.9), 1e-9)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "**", MaskSecret("ab"))
	assert.Equal(t, "***de", MaskSecret("abcde"))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, zerolog.InfoLevel)

	l.Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	l.With("session", "abc").Info("round %d", 3)
	assert.Contains(t, buf.String(), `"message":"round 3"`)
	assert.Contains(t, buf.String(), `"session":"abc"`)
	assert.Contains(t, buf.String(), `"level":"info"`)
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("nothing %s", "here")
		l.With("k", "v").Warn("still nothing")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(""))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("verbose"))
}

func TestStatisticsSummary(t *testing.T) {
	s := NewStatistics()
	assert.Contains(t, s.Summary(), "last_round=never")

	s.AddRound()
	s.AddRound()
	s.AddGameFinished()
	s.AddPowerFallback()

	rounds, games, _, _ := s.GetStats()
	assert.Equal(t, 2, rounds)
	assert.Equal(t, 1, games)
	assert.Contains(t, s.Summary(), "rounds=2 games=1")
	assert.Contains(t, s.Summary(), "fallbacks(power=1 dir=0)")
	assert.Contains(t, s.Summary(), "last_round=0s ago")
}
