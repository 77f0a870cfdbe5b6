// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Jasperd is the personal insight daemon: it ingests calendar, task,
// note, and weather context, decides when that context has changed
// enough to warrant a fresh analysis, requests a summary from an LLM
// provider, persists the result, and fans it out to attached desktop
// frontends over a pair of Unix sockets.
//
// On startup:
//  1. Loads and validates configuration.
//  2. Checks for an unclean shutdown left by a previous run.
//  3. Opens the insight store, builds the context-source aggregator,
//     and wraps the configured LLM provider with retry policy.
//  4. Starts the IPC service (request/response socket + signal socket).
//  5. Enters the lifecycle controller's tick loop until shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/heytcass/jasper/internal/config"
	"github.com/heytcass/jasper/internal/daemon"
	"github.com/heytcass/jasper/internal/frontend"
	"github.com/heytcass/jasper/internal/insight"
	"github.com/heytcass/jasper/internal/ipc"
	"github.com/heytcass/jasper/internal/jasperr"
	"github.com/heytcass/jasper/internal/llmclient"
	"github.com/heytcass/jasper/internal/notify"
	"github.com/heytcass/jasper/internal/pipeline"
	"github.com/heytcass/jasper/internal/secret"
	"github.com/heytcass/jasper/internal/watchdog"
	"github.com/heytcass/jasper/lib/clock"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(jasperr.ExitCode(err))
	}
}

func run() error {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to jasper.yaml (overrides JASPER_CONFIG)")
	flag.Parse()

	resolvedConfigPath, err := resolveConfigPath(configPath)
	if err != nil {
		return jasperr.Wrap(jasperr.ConfigMissing, "resolving configuration path", err)
	}
	cfg, err := config.LoadFile(resolvedConfigPath)
	if err != nil {
		return jasperr.Wrap(jasperr.ConfigInvalid, "loading configuration", err)
	}

	level, _ := config.ParseLogLevel(cfg.General.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	runtimeDir, err := config.RuntimeDir()
	if err != nil {
		return jasperr.Wrap(jasperr.ConfigInvalid, "resolving runtime directory", err)
	}
	if err := os.MkdirAll(runtimeDir, 0700); err != nil {
		return fmt.Errorf("creating runtime directory %s: %w", runtimeDir, err)
	}
	watchdogPath := filepath.Join(runtimeDir, "watchdog.json")
	forceFirstTick := checkPreviousShutdown(watchdogPath, logger)
	if err := watchdog.Write(watchdogPath, watchdog.Marker{PID: os.Getpid(), CleanShutdown: false, Timestamp: time.Now()}); err != nil {
		logger.Warn("writing startup watchdog marker", "error", err)
	}

	stateDir, err := config.StateDir()
	if err != nil {
		return jasperr.Wrap(jasperr.ConfigInvalid, "resolving state directory", err)
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return fmt.Errorf("creating state directory %s: %w", stateDir, err)
	}

	realClock := clock.Real()

	store, err := insight.Open(filepath.Join(stateDir, "insights.db"), realClock)
	if err != nil {
		return jasperr.Wrap(jasperr.StoreError, "opening insight store", err)
	}
	defer store.Close()

	resolver := secret.NewResolver()
	defer resolver.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}

	aggregator, err := daemon.BuildAggregator(cfg.Sources, resolver, httpClient)
	if err != nil {
		return jasperr.Wrap(jasperr.ConfigInvalid, "building context sources", err)
	}

	provider, err := buildProvider(cfg, resolver, httpClient, realClock)
	if err != nil {
		return jasperr.Wrap(jasperr.ConfigInvalid, "building LLM provider", err)
	}

	registry := frontend.New(realClock, time.Duration(cfg.General.HeartbeatTimeoutSeconds)*time.Second)

	requestSocket := filepath.Join(runtimeDir, "jasperd.sock")
	signalSocket := filepath.Join(runtimeDir, "jasperd.signals.sock")
	ipcSvc := ipc.New(requestSocket, signalSocket, store, registry, realClock, logger.With("component", "ipc"))

	logNotifier := notify.NewLogNotifier(logger.With("component", "notify"))
	notifier := daemon.NewNotifier(ipcSvc, logNotifier)

	pl := pipeline.New(aggregator, store, provider, notifier, realClock, daemon.PipelineConfigFromConfig(cfg))

	watcher := config.NewWatcher(resolvedConfigPath, config.WithClock(realClock))
	defer watcher.Stop()

	tickInterval := time.Duration(cfg.General.AnalysisIntervalMins) * time.Minute
	idleTimeout := time.Duration(cfg.General.IdleTimeoutSeconds) * time.Second
	controller := daemon.New(pl, registry, ipcSvc, logNotifier, watcher, realClock, logger.With("component", "controller"),
		resolver, httpClient, tickInterval, idleTimeout, watchdogPath, forceFirstTick)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ipcErrs := make(chan error, 1)
	go func() { ipcErrs <- ipcSvc.Serve(ctx) }()

	logger.Info("jasperd starting",
		"request_socket", requestSocket,
		"signal_socket", signalSocket,
		"analysis_interval_minutes", cfg.General.AnalysisIntervalMins,
	)

	controllerErr := controller.Run(ctx)
	stop()

	if err := <-ipcErrs; err != nil {
		logger.Error("ipc service stopped with error", "error", err)
	}

	return controllerErr
}

// resolveConfigPath returns the config file path to load and watch:
// the --config flag if given, otherwise JASPER_CONFIG. There are no
// further fallbacks.
func resolveConfigPath(flagPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	if envPath := os.Getenv("JASPER_CONFIG"); envPath != "" {
		return envPath, nil
	}
	return "", fmt.Errorf("no config path given: set --config or JASPER_CONFIG")
}

// watchdogMaxAge is the maximum age of a watchdog marker that is still
// treated as describing the immediately preceding run. A marker older
// than this says nothing about whether the significance baseline in
// the insight store is trustworthy, so it is neither trusted nor acted
// on.
const watchdogMaxAge = 5 * time.Minute

// checkPreviousShutdown inspects the watchdog marker left by the prior
// run, if any. When the marker is missing, stale, or records an
// unclean exit (crash, kill -9, OOM), the previous run's significance
// baseline cannot be trusted, so the returned bool tells the caller to
// force a fresh analysis on the very first tick rather than waiting
// for the pipeline to decide the context has changed enough on its
// own.
func checkPreviousShutdown(path string, logger *slog.Logger) bool {
	marker, found, err := watchdog.Check(path, watchdogMaxAge)
	if err != nil {
		logger.Warn("reading watchdog marker from previous run", "error", err)
		return true
	}
	if !found {
		return true
	}
	if !marker.CleanShutdown {
		logger.Warn("previous run did not shut down cleanly",
			"previous_pid", marker.PID,
			"previous_timestamp", marker.Timestamp,
		)
		return true
	}
	return false
}

// buildProvider constructs the configured LLM provider wrapped in the
// retry policy. Only "anthropic" is currently supported.
func buildProvider(cfg *config.Config, resolver *secret.Resolver, httpClient *http.Client, c clock.Clock) (llmclient.Provider, error) {
	if cfg.AI.Provider != "anthropic" {
		return nil, fmt.Errorf("unsupported ai.provider %q", cfg.AI.Provider)
	}
	apiKey, err := resolver.Resolve(cfg.AI.APIKeyRef)
	if err != nil {
		return nil, fmt.Errorf("resolving ai.api_key_ref: %w", err)
	}
	base := llmclient.NewAnthropic(httpClient, "https://api.anthropic.com", apiKey.String())
	return llmclient.NewRetryingProvider(base, c, cfg.AI.MaxRetries+1), nil
}
