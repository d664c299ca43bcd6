// Package main - launcher.go
//
// The Launcher starts one Session per account and waits for all of them.
//
// Session i starts i*LaunchStagger after the launch so browsers do not all
// hit the game at once. Sessions are independent: one failing does not stop the
// others, and the launch reports the first error after every session has ended.
// A panic inside one session is recovered and reported as that session's error.
package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Launcher owns the sessions of one process.
type Launcher struct {
	cfg      *Config
	accounts []Credentials
	clocks   ClockFactory
	open     FrontendFactory
	events   EventSink

	mu       sync.Mutex
	sessions []*Session
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
}

// ClockFactory hands each session its own clock.
type ClockFactory func() Clock

// NewLauncher creates a launcher. With no accounts a single anonymous session is run.
// A nil clocks factory gives every session the real clock.
func NewLauncher(cfg *Config, accounts []Credentials, clocks ClockFactory, open FrontendFactory, events EventSink) *Launcher {
	if len(accounts) == 0 {
		accounts = []Credentials{{}}
	}
	if clocks == nil {
		clocks = RealClock
	}
	return &Launcher{cfg: cfg, accounts: accounts, clocks: clocks, open: open, events: events}
}

// Start launches all sessions in the background. It is a no-op while running.
func (l *Launcher) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		select {
		case <-l.done:
		default:
			return
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.err = nil
	l.sessions = make([]*Session, len(l.accounts))
	for i, creds := range l.accounts {
		l.sessions[i] = NewSession(i, creds, l.cfg, l.clocks(), l.open, l.events)
	}
	sessions, done := l.sessions, l.done

	LogInfo("Launching %d session(s), stagger %v", len(sessions), l.cfg.LaunchStagger)
	SafeGo(func() {
		defer close(done)
		err := l.runAll(ctx, sessions)
		cancel()
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
	})
}

func (l *Launcher) runAll(ctx context.Context, sessions []*Session) error {
	var g errgroup.Group
	for i, s := range sessions {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					LogError("Session %d panicked: %v", i+1, r)
					s.setStatus("crashed")
					err = fmt.Errorf("session %d: panic: %v", i+1, r)
				}
			}()
			if err := s.clock.Sleep(ctx, l.cfg.LaunchStagger*time.Duration(i)); err != nil {
				return nil
			}
			outcome, err := s.Run(ctx)
			if err != nil {
				LogError("Session %d failed: %v", i+1, err)
				return fmt.Errorf("session %d: %w", i+1, err)
			}
			LogInfo("Session %d finished: %s", i+1, outcome)
			return nil
		})
	}
	return g.Wait()
}

// Wait blocks until every session of the current launch has ended.
func (l *Launcher) Wait() error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Run launches all sessions and waits for them.
func (l *Launcher) Run(ctx context.Context) error {
	l.Start(ctx)
	return l.Wait()
}

// Stop stops every session of the current launch.
func (l *Launcher) Stop() {
	l.mu.Lock()
	sessions, cancel := l.sessions, l.cancel
	l.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
	if cancel != nil {
		cancel()
	}
}

// Running reports whether a launch is in progress.
func (l *Launcher) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

// Sessions returns the sessions of the current launch.
func (l *Launcher) Sessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.sessions...)
}

// StatusLines returns one status line per session.
func (l *Launcher) StatusLines() []string {
	sessions := l.Sessions()
	lines := make([]string, len(sessions))
	for i, s := range sessions {
		rounds, games, _, uptime := s.Stats().GetStats()
		lines[i] = fmt.Sprintf("#%d %s | %d rounds | %d games | %s", i+1, s.Status(), rounds, games, uptime)
	}
	return lines
}
