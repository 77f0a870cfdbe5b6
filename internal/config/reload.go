// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/heytcass/jasper/lib/clock"
)

// DefaultDebounceInterval is how long the watcher waits after the last
// SIGHUP before actually reloading, coalescing a burst of signals (e.g.
// an editor writing a file in several steps) into a single reload.
const DefaultDebounceInterval = 250 * time.Millisecond

// DefaultPollInterval is how often the watcher stats the config file to
// detect an atomic rename-into-place replacement (an editor writing a
// new file and renaming over the old one, which changes the mtime but
// sends no signal at all).
const DefaultPollInterval = time.Second

// Reloaded is delivered on the Watcher's channel each time a reload
// attempt completes.
type Reloaded struct {
	Config *Config
	Err    error
}

// Watcher reloads the config file on two independent triggers — a
// SIGHUP, and a Clock-driven poll that notices the file's mtime has
// changed (the case an editor's atomic rename-into-place never sends a
// signal for) — debouncing bursts from either source with a single
// timer. Reload results are delivered serially on Changes(); no caller
// ever observes a mid-flight config change.
//
// Grounded on the tmux control-mode debounce timer: a monotonically
// increasing generation counter guards against a stale timer firing
// after a newer signal has already reset it.
type Watcher struct {
	path             string
	clock            clock.Clock
	debounceInterval time.Duration
	pollInterval     time.Duration

	signals chan os.Signal
	trigger chan struct{}
	changes chan Reloaded
	stop    chan struct{}
	done    chan struct{}

	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceInterval overrides DefaultDebounceInterval.
func WithDebounceInterval(interval time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounceInterval = interval }
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(interval time.Duration) WatcherOption {
	return func(w *Watcher) { w.pollInterval = interval }
}

// WithClock injects a Clock for deterministic tests. Defaults to
// clock.Real().
func WithClock(c clock.Clock) WatcherOption {
	return func(w *Watcher) { w.clock = c }
}

// NewWatcher creates and starts a Watcher for the config file at path.
// Call Stop when the daemon shuts down.
func NewWatcher(path string, options ...WatcherOption) *Watcher {
	w := &Watcher{
		path:             path,
		clock:            clock.Real(),
		debounceInterval: DefaultDebounceInterval,
		pollInterval:     DefaultPollInterval,
		signals:          make(chan os.Signal, 4),
		trigger:          make(chan struct{}, 4),
		changes:          make(chan Reloaded, 1),
		stop:             make(chan struct{}),
		done:             make(chan struct{}),
	}
	for _, option := range options {
		option(w)
	}

	signal.Notify(w.signals, syscall.SIGHUP)
	go w.forwardSignals()
	go w.run()
	return w
}

// forwardSignals relays received SIGHUPs onto the internal trigger
// channel that run selects on. Kept separate from run so tests can
// drive the trigger channel directly without sending real signals.
func (w *Watcher) forwardSignals() {
	for {
		select {
		case <-w.signals:
			select {
			case w.trigger <- struct{}{}:
			case <-w.stop:
				return
			}
		case <-w.stop:
			return
		}
	}
}

// Changes returns the channel that receives reload results.
func (w *Watcher) Changes() <-chan Reloaded {
	return w.changes
}

// Reload forces an immediate reload attempt, bypassing the debounce
// timer and the SIGHUP trigger. Used by the lifecycle controller in
// response to an IPC-triggered reconfiguration request, if one is
// ever added.
func (w *Watcher) Reload() Reloaded {
	cfg, err := LoadFile(w.path)
	return Reloaded{Config: cfg, Err: err}
}

// Stop stops listening for SIGHUP and releases the watcher's goroutine.
// Calling it more than once is safe.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		signal.Stop(w.signals)
		close(w.stop)
	})
	<-w.done
}

func (w *Watcher) run() {
	defer close(w.done)
	defer close(w.changes)

	var timer *clock.Timer
	var generation uint64
	var mu sync.Mutex

	lastModTime := w.statModTime()
	ticker := w.clock.NewTicker(w.pollInterval)
	defer ticker.Stop()

	scheduleReload := func() {
		mu.Lock()
		generation++
		current := generation
		mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		timer = w.clock.AfterFunc(w.debounceInterval, func() {
			mu.Lock()
			stale := current != generation
			mu.Unlock()
			if stale {
				return
			}

			result := w.Reload()
			select {
			case w.changes <- result:
			case <-w.stop:
			}
		})
	}

	for {
		select {
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return

		case <-w.trigger:
			scheduleReload()

		case <-ticker.C:
			modTime := w.statModTime()
			if !modTime.IsZero() && !modTime.Equal(lastModTime) {
				lastModTime = modTime
				scheduleReload()
			}
		}
	}
}

// statModTime returns path's current mtime, or the zero Time if it
// cannot be stat'd (e.g. mid-rename, or not yet created).
func (w *Watcher) statModTime() time.Time {
	info, err := os.Stat(w.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
