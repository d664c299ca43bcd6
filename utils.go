// Package main - utils.go
//
// This file provides small helpers shared by the rest of the agent.
//
//   - FormatDuration: Converts duration to human-readable string (e.g., "2m 30s")
//   - Clamp/ClampFloat: Restricts values to min/max range
//   - SafeGo: Launches goroutines with panic recovery
//   - MaskSecret: Hides credentials before they reach a log line
package main

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration formats a duration into human-readable string
func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// Clamp restricts a value between lo and hi
func Clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// ClampFloat restricts a float value between lo and hi
func ClampFloat(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// SafeGo runs a function in a goroutine with panic recovery
func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				LogError("Panic recovered in goroutine: %v", r)
			}
		}()
		fn()
	}()
}

// MaskSecret keeps the last two characters of s and stars the rest.
func MaskSecret(s string) string {
	r := []rune(s)
	if len(r) <= 2 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-2) + string(r[len(r)-2:])
}
