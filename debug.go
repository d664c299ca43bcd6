// Package main - debug.go
//
// This file implements leveled logging and the in-page click marker overlay.
//
// Major Components:
//
// 1. Logging System:
//    - zerolog writer to Debug.log, truncated on each startup
//    - Optional human-readable console output on stderr
//    - Four log levels: DEBUG, INFO, WARN, ERROR
//    - Per-session child loggers carrying session and account fields
//    - Global logger instance accessible via convenience functions
//
// 2. Debug Visualization:
//    - Transient crosshair drawn on the page where a click landed
//    - Only active when the debug flag is set in the configuration
//
// Logging Levels:
//   - DEBUG: Detailed operation info (pixel counts, ratios, coordinates)
//   - INFO: Important events (startup, phase changes, rounds, game finished)
//   - WARN: Non-critical issues (timeouts that ended in a fallback)
//   - ERROR: Serious problems (browser launch or navigation failures)
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// Logger provides leveled printf-style logging on top of zerolog.
//
// A Logger is safe for concurrent use. The zero value and a nil *Logger both
// forward to the global logger so components can be built without one.
type Logger struct {
	zl   zerolog.Logger
	file *os.File
	set  bool
}

var globalLogger *Logger

// InitLogger initializes the global logger from the given settings.
// The log file is truncated (cleared) on each startup.
func InitLogger(cfg LogConfig) error {
	file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	writers := []io.Writer{file}
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"})
	}

	l := NewLogger(zerolog.MultiLevelWriter(writers...), ParseLevel(cfg.Level))
	l.file = file
	globalLogger = l

	globalLogger.Info("Logger initialized (log file cleared)")
	return nil
}

// NewLogger creates a logger writing JSON lines to w.
func NewLogger(w io.Writer, level zerolog.Level) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	return &Logger{
		zl:  zerolog.New(w).Level(level).With().Timestamp().Logger(),
		set: true,
	}
}

// ParseLevel maps a config level name to a zerolog level, defaulting to debug.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || name == "" {
		return zerolog.DebugLevel
	}
	return level
}

// CloseLogger closes the log file
func CloseLogger() {
	if globalLogger != nil && globalLogger.file != nil {
		globalLogger.Info("Logger closing")
		globalLogger.file.Close()
	}
}

// With returns a child logger that tags every line with key=value.
func (l *Logger) With(key, value string) *Logger {
	base := l.base()
	if base == nil {
		return nil
	}
	return &Logger{zl: base.zl.With().Str(key, value).Logger(), set: true}
}

func (l *Logger) base() *Logger {
	if l != nil && l.set {
		return l
	}
	return globalLogger
}

func (l *Logger) emit(e *zerolog.Event, format string, v []interface{}) {
	e.Msgf(format, v...)
}

// Debug logs debug level messages
func (l *Logger) Debug(format string, v ...interface{}) {
	if b := l.base(); b != nil {
		b.emit(b.zl.Debug(), format, v)
	}
}

// Info logs info level messages
func (l *Logger) Info(format string, v ...interface{}) {
	if b := l.base(); b != nil {
		b.emit(b.zl.Info(), format, v)
	}
}

// Warn logs warning level messages
func (l *Logger) Warn(format string, v ...interface{}) {
	if b := l.base(); b != nil {
		b.emit(b.zl.Warn(), format, v)
	}
}

// Error logs error level messages
func (l *Logger) Error(format string, v ...interface{}) {
	if b := l.base(); b != nil {
		b.emit(b.zl.Error(), format, v)
	}
}

// LogDebug is a convenience function for debug logging
func LogDebug(format string, v ...interface{}) {
	globalLogger.Debug(format, v...)
}

// LogInfo is a convenience function for info logging
func LogInfo(format string, v ...interface{}) {
	globalLogger.Info(format, v...)
}

// LogWarn is a convenience function for warning logging
func LogWarn(format string, v ...interface{}) {
	globalLogger.Warn(format, v...)
}

// LogError is a convenience function for error logging
func LogError(format string, v ...interface{}) {
	globalLogger.Error(format, v...)
}

// DrawClickMarker draws a short-lived crosshair at client coordinates (x, y).
//
// The marker is a fixed-position div with pointer-events disabled, removed by the
// page after 600ms, so it never intercepts the click it visualizes.
func (b *Browser) DrawClickMarker(x, y float64) error {
	if b.ctx == nil || b.ctx.Err() != nil {
		return nil
	}

	js := fmt.Sprintf(`
		(function() {
			const m = document.createElement('div');
			m.style.cssText = 'position:fixed;left:%.1fpx;top:%.1fpx;width:12px;height:12px;' +
				'margin:-7px 0 0 -7px;border:2px solid lime;border-radius:50%%;' +
				'pointer-events:none;z-index:99999';
			document.body.appendChild(m);
			setTimeout(() => m.remove(), 600);
		})();
	`, x, y)

	ctx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Evaluate(js, nil)); err != nil {
		b.log.Debug("DrawClickMarker failed: %v", err)
		return err
	}
	return nil
}
