// Package main - session.go
//
// A Session is one account playing in its own browser. It owns every piece of
// per-account state: browser, logger, dispatcher, controller and statistics.
// Nothing is shared between sessions except the read-only configuration.
//
// Session Lifecycle:
//   1. Open the frontend (browser) with an isolated profile directory
//   2. Wait for the game canvas to appear
//   3. Run the phase controller until the game finishes or the session is stopped
//   4. Close the frontend
//
// Credentials are handed in at creation, kept in memory only and never written
// to logs in clear text.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Credentials identify one account.
type Credentials struct {
	Identifier string `yaml:"phone"`
	Secret     string `yaml:"password"`
}

// String masks both fields so credentials are safe to log.
func (c Credentials) String() string {
	return fmt.Sprintf("%s/%s", MaskSecret(c.Identifier), MaskSecret(c.Secret))
}

// LoadAccounts reads a YAML or JSON list of {phone, password} entries.
func LoadAccounts(path string) ([]Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}
	var accounts []Credentials
	if err := yaml.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts %s: %w", path, err)
	}
	return accounts, nil
}

// Frontend is the live game surface of a session.
type Frontend interface {
	FrameSource
	PointerDevice
	Start(ctx context.Context) error
	CheckCanvasExists(ctx context.Context) bool
	Close()
}

// FrontendFactory opens the frontend for a profile directory name.
type FrontendFactory func(cfg *Config, profile string, logger *Logger) Frontend

func browserFrontend(cfg *Config, profile string, logger *Logger) Frontend {
	return NewBrowser(cfg, profile, logger)
}

// Session runs the agent for one account.
type Session struct {
	ID      string
	Index   int
	creds   Credentials
	cfg     *Config
	clock   Clock
	open    FrontendFactory
	events  EventSink
	logger  *Logger
	stats   *Statistics

	mu         sync.Mutex
	controller *Controller
	dispatcher *Dispatcher
	status     string
	cancel     context.CancelFunc
}

// NewSession creates a session for the account at index.
func NewSession(index int, creds Credentials, cfg *Config, clock Clock, open FrontendFactory, events EventSink) *Session {
	id := uuid.NewString()
	if open == nil {
		open = browserFrontend
	}
	return &Session{
		ID:     id,
		Index:  index,
		creds:  creds,
		cfg:    cfg,
		clock:  clock,
		open:   open,
		events: events,
		logger: globalLogger.With("session", id[:8]).With("account", MaskSecret(creds.Identifier)),
		stats:  NewStatistics(),
		status: "created",
	}
}

// Profile returns the profile directory name of this session.
func (s *Session) Profile() string {
	return fmt.Sprintf("account-%02d", s.Index+1)
}

// Credentials returns the account credentials.
func (s *Session) Credentials() Credentials {
	return s.creds
}

// Stats returns the session statistics.
func (s *Session) Stats() *Statistics {
	return s.stats
}

// Status returns the last status line.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ActionLogs returns the recent clicks of the session.
func (s *Session) ActionLogs() []ActionLog {
	s.mu.Lock()
	d := s.dispatcher
	s.mu.Unlock()
	if d == nil {
		return nil
	}
	return d.GetActionLogs()
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Session) onEvent(ev Event) {
	s.setStatus(fmt.Sprintf("%s round %d: %s", ev.Phase, ev.Round, ev.Message))
	if s.events != nil {
		s.events(ev)
	}
}

// Run opens the frontend, waits for the canvas and plays until the game is over.
func (s *Session) Run(ctx context.Context) (Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("Session %d starting (%s)", s.Index+1, s.creds)
	s.setStatus("starting browser")

	front := s.open(s.cfg, s.Profile(), s.logger)
	defer front.Close()

	if err := front.Start(ctx); err != nil {
		s.setStatus("browser failed")
		return OutcomeStopped, fmt.Errorf("browser start: %w", err)
	}

	pacer := NewPacer(s.clock, s.cfg.Input, nil)
	if !s.waitForCanvas(ctx, front, pacer) {
		s.setStatus("stopped")
		return OutcomeStopped, nil
	}

	dispatcher := NewDispatcher(front, s.cfg, pacer, s.stats, s.logger)
	controller := NewController(s.cfg, front, dispatcher, pacer, s.stats, s.logger)
	controller.SetEventSink(s.ID, s.onEvent)

	s.mu.Lock()
	s.dispatcher = dispatcher
	s.controller = controller
	s.mu.Unlock()

	outcome, err := controller.Run(ctx)
	s.logger.Info("Session %d ended: %s (%s)", s.Index+1, outcome, s.stats.Summary())
	s.setStatus(fmt.Sprintf("ended: %s", outcome))
	return outcome, err
}

func (s *Session) waitForCanvas(ctx context.Context, front Frontend, pacer *Pacer) bool {
	deadline := pacer.Deadline(s.cfg.Browser.NavigateTimeout)
	for {
		if front.CheckCanvasExists(ctx) {
			return true
		}
		if !pacer.Before(deadline) {
			s.logger.Warn("Canvas %q not found yet, starting anyway", s.cfg.Browser.CanvasSelector)
			return ctx.Err() == nil
		}
		s.setStatus("waiting for canvas")
		if pacer.Poll(ctx, s.cfg.Setup.ProbeRetry) != nil {
			return false
		}
	}
}

// Stop ends the session at the next poll boundary.
func (s *Session) Stop() {
	s.mu.Lock()
	controller, cancel := s.controller, s.cancel
	s.mu.Unlock()
	if controller != nil {
		controller.Stop()
	}
	if cancel != nil {
		cancel()
	}
}
