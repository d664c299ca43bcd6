// Package main implements Lane Bot, an automated player for a canvas bowling game.
//
// Architecture Overview:
// One goroutine per account runs a Session: its own chromedp browser, logger,
// click dispatcher and phase controller. The controller loops over rounds,
// reading pixel regions of the canvas and reacting with synthetic clicks:
//
//   1. Pin analysis picks a target and dead reckoning aligns the bowler under it
//   2. The power gauge stops the charge at full strength
//   3. The direction gauge fires when the arrow is centered
//   4. The turn detector waits for the next turn or the end-of-game modal
//
// Startup Sequence:
//   1. Logger setup (Debug.log truncated)
//   2. Config load (lane-bot.yaml, defaults when missing)
//   3. Accounts load (accounts.json, one anonymous session when missing)
//   4. Launcher starts sessions staggered by launch_stagger
//   5. Tray UI (optional) or block until all sessions end or a signal arrives
//
// Modes:
//   -analyze shot.png  run all analyzers on a screenshot and write an annotated copy
//   -tray              show the start/stop tray menu
//
// Exit Codes:
//   - 0: Normal exit
//   - 1: Startup failure (logger, config, accounts, analysis)
//   - 2: Unhandled panic occurred
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC: %v\n", r)
			LogError("PANIC in main: %v", r)
			CloseLogger()
			os.Exit(2)
		}
	}()

	configPath := flag.String("config", "lane-bot.yaml", "path to the YAML config file")
	accountsPath := flag.String("accounts", "accounts.json", "path to the accounts list")
	analyzePath := flag.String("analyze", "", "analyze a screenshot instead of playing")
	outPath := flag.String("out", "result.png", "annotated output of -analyze")
	useTray := flag.Bool("tray", false, "show the system tray menu")
	flag.Parse()

	cfg, err := Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := InitLogger(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		LogInfo("=== Lane Bot Shutdown ===")
		CloseLogger()
	}()
	LogInfo("=== Lane Bot Started ===")

	if *analyzePath != "" {
		if _, err := AnalyzeFile(cfg, *analyzePath, *outPath); err != nil {
			LogError("Analysis failed: %v", err)
			CloseLogger()
			os.Exit(1)
		}
		return
	}

	accounts, err := LoadAccounts(*accountsPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			LogError("%v", err)
			CloseLogger()
			os.Exit(1)
		}
		LogWarn("No accounts file at %s, running one session", *accountsPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	launcher := NewLauncher(cfg, accounts, nil, nil, func(ev Event) {
		LogDebug("[%.8s] %s", ev.Session, ev.Message)
	})

	if *useTray {
		NewTrayApp(ctx, launcher, max(len(accounts), 1)).Run()
		return
	}

	if err := launcher.Run(ctx); err != nil {
		LogError("Launcher finished with error: %v", err)
	}
}
