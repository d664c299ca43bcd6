// Package main - tray.go
//
// This file implements the system tray UI, the minimal start/stop control of the agent.
// Uses getlantern/systray library for cross-platform tray menu support.
//
// Menu Structure:
//   Lane Bot
//   ├─ Status: Running/Stopped | sessions (read-only)
//   ├─ #1 ... #N session lines (read-only, refreshed every second)
//   ├─ Start (launch all sessions)
//   ├─ Stop (stop all sessions at the next poll boundary)
//   └─ Quit (stop, close browsers, exit)
//
// Lifecycle:
//   1. NewTrayApp: Create instance with launcher reference
//   2. Run: Start systray (blocking call)
//   3. onReady: Build menus, start sessions, start refresh loop
//   4. handleEvents: Listen for user interactions
//   5. onExit: Stop sessions
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/getlantern/systray"
)

// TrayApp manages the system tray application.
type TrayApp struct {
	launcher *Launcher
	ctx      context.Context
	slots    int

	statusItem   *systray.MenuItem
	sessionItems []*systray.MenuItem
	startItem    *systray.MenuItem
	stopItem     *systray.MenuItem
	quitItem     *systray.MenuItem
}

// NewTrayApp creates a new tray application for a launcher with the given session count.
func NewTrayApp(ctx context.Context, launcher *Launcher, sessions int) *TrayApp {
	return &TrayApp{launcher: launcher, ctx: ctx, slots: sessions}
}

// Run starts the tray application (blocking)
func (t *TrayApp) Run() {
	LogInfo("Starting system tray application")
	systray.Run(t.onReady, func() {
		LogInfo("System tray onExit callback triggered")
		t.launcher.Stop()
		_ = t.launcher.Wait()
		LogInfo("System tray exit complete")
	})
	LogInfo("System tray Run() returned")
}

// onReady is called when the tray is ready
func (t *TrayApp) onReady() {
	systray.SetTitle("Lane Bot")
	systray.SetTooltip("Lane Bot")

	t.statusItem = systray.AddMenuItem("Status: Stopped", "Launcher status")
	t.statusItem.Disable()
	for i := 0; i < t.slots; i++ {
		item := systray.AddMenuItem(fmt.Sprintf("#%d idle", i+1), "Session status")
		item.Disable()
		t.sessionItems = append(t.sessionItems, item)
	}
	systray.AddSeparator()
	t.startItem = systray.AddMenuItem("Start", "Launch all sessions")
	t.stopItem = systray.AddMenuItem("Stop", "Stop all sessions")
	systray.AddSeparator()
	t.quitItem = systray.AddMenuItem("Quit", "Stop and exit")

	t.launcher.Start(t.ctx)

	go t.refreshLoop()
	go t.handleEvents()
}

// handleEvents handles tray menu events
func (t *TrayApp) handleEvents() {
	for {
		select {
		case <-t.startItem.ClickedCh:
			LogInfo("Start requested from tray")
			t.launcher.Start(t.ctx)
			t.refresh()
		case <-t.stopItem.ClickedCh:
			LogInfo("Stop requested from tray")
			t.launcher.Stop()
			t.refresh()
		case <-t.quitItem.ClickedCh:
			LogInfo("Quit requested by user")
			systray.Quit()
			return
		case <-t.ctx.Done():
			systray.Quit()
			return
		}
	}
}

func (t *TrayApp) refreshLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.refresh()
		case <-t.ctx.Done():
			return
		}
	}
}

// refresh updates the status display
func (t *TrayApp) refresh() {
	state := "Stopped"
	if t.launcher.Running() {
		state = "Running"
		t.startItem.Disable()
		t.stopItem.Enable()
	} else {
		t.startItem.Enable()
		t.stopItem.Disable()
	}
	t.statusItem.SetTitle(fmt.Sprintf("Status: %s | %d sessions", state, t.slots))

	lines := t.launcher.StatusLines()
	for i, item := range t.sessionItems {
		if i < len(lines) {
			item.SetTitle(lines[i])
		}
	}
}
