// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package daemon implements the lifecycle controller: the main tick
// loop that drives the analysis pipeline on a timer, services forced
// refreshes from the IPC surface, sweeps the frontend registry, applies
// hot-reloaded configuration, and shuts down cleanly (or after an idle
// timeout with no attached frontends).
package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/heytcass/jasper/internal/config"
	"github.com/heytcass/jasper/internal/frontend"
	"github.com/heytcass/jasper/internal/insight"
	"github.com/heytcass/jasper/internal/ipc"
	"github.com/heytcass/jasper/internal/notify"
	"github.com/heytcass/jasper/internal/pipeline"
	"github.com/heytcass/jasper/internal/secret"
	"github.com/heytcass/jasper/internal/watchdog"
	"github.com/heytcass/jasper/lib/clock"
)

// Controller owns the daemon's tick loop. It is the single writer of
// the pipeline's configuration and the frontend registry's sweep
// cadence; RegisterFrontend/Heartbeat/UnregisterFrontend continue to
// run on the IPC service's own goroutines, guarded by the registry's
// own mutex.
type Controller struct {
	pipeline *pipeline.Pipeline
	registry *frontend.Registry
	ipcSvc   *ipc.Service
	notifier notify.Notifier
	watcher  *config.Watcher
	clock    clock.Clock
	logger   *slog.Logger

	resolver   *secret.Resolver
	httpClient *http.Client

	watchdogPath   string
	forceFirstTick bool

	mu           sync.Mutex
	tickInterval time.Duration
	idleTimeout  time.Duration
}

// New creates a Controller. tickInterval and idleTimeout come from the
// initially loaded Config and are updated by applyReload. resolver and
// httpClient are retained so a reload can rebuild the source aggregator
// against newly enabled sources or rotated credentials. forceFirstTick
// is true when the watchdog marker from the previous run is missing,
// stale, or records an unclean shutdown, meaning the significance
// baseline in the insight store cannot be trusted; Run then treats its
// very first tick as forced, the same as an operator-requested refresh.
func New(
	pl *pipeline.Pipeline,
	registry *frontend.Registry,
	ipcSvc *ipc.Service,
	notifier notify.Notifier,
	watcher *config.Watcher,
	c clock.Clock,
	logger *slog.Logger,
	resolver *secret.Resolver,
	httpClient *http.Client,
	tickInterval, idleTimeout time.Duration,
	watchdogPath string,
	forceFirstTick bool,
) *Controller {
	return &Controller{
		pipeline:       pl,
		registry:       registry,
		ipcSvc:         ipcSvc,
		notifier:       notifier,
		watcher:        watcher,
		clock:          c,
		logger:         logger,
		resolver:       resolver,
		httpClient:     httpClient,
		tickInterval:   tickInterval,
		idleTimeout:    idleTimeout,
		watchdogPath:   watchdogPath,
		forceFirstTick: forceFirstTick,
	}
}

// heartbeatSweepInterval is fixed rather than configurable: it only
// needs to be frequent relative to the heartbeat timeout, not exposed
// as a tunable of its own.
const heartbeatSweepInterval = 10 * time.Second

// Run drives the tick loop until ctx is cancelled or the idle timeout
// with no attached frontends is reached. Either way it performs a
// graceful shutdown (DaemonStopping signal, watcher stop, watchdog
// marker) before returning.
func (c *Controller) Run(ctx context.Context) error {
	ticker := c.clock.NewTicker(c.currentTickInterval())
	defer ticker.Stop()

	sweep := c.clock.NewTicker(heartbeatSweepInterval)
	defer sweep.Stop()

	var idleSince time.Time
	if len(c.registry.ListActive()) == 0 {
		idleSince = c.clock.Now()
	}

	if c.forceFirstTick {
		c.logger.Info("previous run's watchdog marker missing, stale, or unclean; forcing first tick")
		c.runTick(ctx, true)
		idleSince = time.Time{}
	}

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil

		case reloaded, ok := <-c.watcher.Changes():
			if !ok {
				continue
			}
			if reloaded.Err != nil {
				c.logger.Warn("config reload failed, keeping previous configuration", "error", reloaded.Err)
				continue
			}
			c.applyReload(reloaded.Config, ticker)

		case <-c.ipcSvc.ForceRefreshRequested():
			c.runTick(ctx, true)
			idleSince = time.Time{}

		case <-ticker.C:
			c.runTick(ctx, false)

		case <-sweep.C:
			now := c.clock.Now()
			for _, id := range c.registry.Sweep(now) {
				c.logger.Info("frontend registration expired", "frontend_id", id)
			}

			if len(c.registry.ListActive()) == 0 {
				if idleSince.IsZero() {
					idleSince = now
				}
			} else {
				idleSince = time.Time{}
			}

			if !idleSince.IsZero() && now.Sub(idleSince) >= c.idleTimeout {
				c.logger.Info("idle timeout reached with no attached frontends, shutting down")
				c.shutdown()
				return nil
			}
		}
	}
}

func (c *Controller) currentTickInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickInterval
}

// applyReload swaps the controller's own tunables (tick interval, idle
// timeout), rebuilds the source aggregator against the reloaded source
// configuration, and pushes both the aggregator and the AI/significance
// portion of cfg down into the pipeline. The reload only takes effect
// between ticks: Tick holds its own mutex for the duration of a run, so
// Reconfigure never races a run already in flight — it simply blocks
// until the run releases the lock, which satisfies the "applies
// strictly after the current run commits or errors" rule without extra
// bookkeeping.
//
// A source that fails to rebuild (bad token reference, for instance)
// does not abort the reload: the tick interval and idle timeout still
// apply, and the pipeline keeps its previous aggregator rather than the
// daemon crashing on a bad edit to the config file.
func (c *Controller) applyReload(cfg *config.Config, ticker *clock.Ticker) {
	c.mu.Lock()
	c.tickInterval = time.Duration(cfg.General.AnalysisIntervalMins) * time.Minute
	c.idleTimeout = time.Duration(cfg.General.IdleTimeoutSeconds) * time.Second
	c.mu.Unlock()

	ticker.Reset(c.currentTickInterval())

	agg, err := BuildAggregator(cfg.Sources, c.resolver, c.httpClient)
	if err != nil {
		c.logger.Error("rebuilding context sources from reloaded configuration, keeping previous sources", "error", err)
		agg = nil
	}
	c.pipeline.Reconfigure(PipelineConfigFromConfig(cfg), agg)

	c.logger.Info("configuration reloaded", "analysis_interval_minutes", cfg.General.AnalysisIntervalMins)
}

func (c *Controller) runTick(ctx context.Context, forced bool) {
	result := c.pipeline.Tick(ctx, c.clock.Now(), forced)
	switch result.Outcome {
	case pipeline.Committed:
		c.ipcSvc.SetOnline(true)
		c.logger.Info("insight committed",
			"insight_id", result.Insight.ID,
			"decision", result.Decision.Kind,
			"forced", forced,
		)
		if result.Err != nil {
			c.logger.Warn("post-commit housekeeping failed", "error", result.Err)
		}
	case pipeline.Skipped:
		c.logger.Debug("tick skipped", "decision", result.Decision.Kind, "forced", forced)
	case pipeline.Failed:
		c.ipcSvc.SetOnline(false)
		c.logger.Error("tick failed", "error", result.Err, "forced", forced)
	}
}

func (c *Controller) shutdown() {
	c.logger.Info("daemon stopping")

	c.ipcSvc.DaemonStopping(context.Background())
	c.watcher.Stop()

	marker := watchdog.Marker{
		PID:           os.Getpid(),
		CleanShutdown: true,
		Timestamp:     c.clock.Now(),
	}
	if err := watchdog.Write(c.watchdogPath, marker); err != nil {
		c.logger.Error("writing watchdog marker", "error", err)
	}
}

// compositeNotifier fans a committed insight out to both the IPC
// signal-push socket (InsightUpdated) and the notification-level
// mapper (NotifyInsight). It is what New's pipeline argument actually
// wraps; the two concerns are unrelated (transport vs. urgency
// bucketing) but a single Insight event drives both.
type compositeNotifier struct {
	ipcSvc *ipc.Service
	notify notify.Notifier
}

// NewNotifier composes ipcSvc and notifier into the single
// pipeline.Notifier the analysis pipeline calls on every commit.
func NewNotifier(ipcSvc *ipc.Service, notifier notify.Notifier) pipeline.Notifier {
	return &compositeNotifier{ipcSvc: ipcSvc, notify: notifier}
}

func (n *compositeNotifier) InsightUpdated(ctx context.Context, i insight.Insight) {
	n.ipcSvc.InsightUpdated(ctx, i)
	if n.notify != nil {
		n.notify.NotifyInsight(ctx, i)
	}
}
