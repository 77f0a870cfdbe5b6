// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package frontend implements the frontend registry: the set of UI
// processes currently subscribed to insight updates, keyed by a
// frontend-chosen ID and tracked via heartbeat and OS-level liveness.
package frontend

import (
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/heytcass/jasper/lib/clock"
)

// NotifyPreference controls which insight updates a frontend receives.
type NotifyPreference string

const (
	NotifyAll         NotifyPreference = "all"
	NotifySignificant NotifyPreference = "significant"
	NotifyNone        NotifyPreference = "none"
)

// Registration is one frontend's registry entry.
type Registration struct {
	FrontendID       string
	PID              int
	RegisteredAt     time.Time
	LastHeartbeatAt  time.Time
	NotifyPreference NotifyPreference
}

// Registry tracks live frontend registrations. Register, Unregister,
// and Heartbeat are called from IPC request handlers running on
// arbitrary goroutines; Sweep is called once per lifecycle-controller
// tick. A single mutex serializes all of them — the registry is small
// and short-held, so a plain map+mutex outperforms anything fancier.
type Registry struct {
	mu               sync.Mutex
	entries          map[string]Registration
	clock            clock.Clock
	heartbeatTimeout time.Duration
}

// New creates an empty Registry. heartbeatTimeout is the liveness
// window; a registration not heartbeaten within this long is swept.
func New(c clock.Clock, heartbeatTimeout time.Duration) *Registry {
	return &Registry{
		entries:          make(map[string]Registration),
		clock:            c,
		heartbeatTimeout: heartbeatTimeout,
	}
}

// NewID generates a frontend ID for callers that don't have a stable
// identifier of their own (a one-shot CLI invocation, say, rather than
// a long-lived desktop widget that persists an ID across restarts).
func NewID() string {
	return uuid.NewString()
}

// Register adds a new frontend. Returns false if frontendID is already
// registered (AlreadyRegistered).
func (r *Registry) Register(frontendID string, pid int, preference NotifyPreference) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[frontendID]; exists {
		return false
	}

	now := r.clock.Now()
	r.entries[frontendID] = Registration{
		FrontendID:       frontendID,
		PID:              pid,
		RegisteredAt:     now,
		LastHeartbeatAt:  now,
		NotifyPreference: preference,
	}
	return true
}

// Unregister removes a frontend's registration. Always succeeds,
// whether or not frontendID was registered.
func (r *Registry) Unregister(frontendID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, frontendID)
}

// Heartbeat refreshes a frontend's last-heartbeat timestamp. Returns
// false if frontendID is not registered (Unknown).
func (r *Registry) Heartbeat(frontendID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[frontendID]
	if !exists {
		return false
	}
	entry.LastHeartbeatAt = r.clock.Now()
	r.entries[frontendID] = entry
	return true
}

// ListActive returns every currently registered frontend, in no
// particular order.
func (r *Registry) ListActive() []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Registration, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	return out
}

// Sweep removes registrations that are no longer live: their
// heartbeat is stale, or the OS reports the pid no longer exists.
// Returns the frontend IDs removed.
func (r *Registry) Sweep(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for id, entry := range r.entries {
		if r.live(entry, now) {
			continue
		}
		delete(r.entries, id)
		removed = append(removed, id)
	}
	return removed
}

func (r *Registry) live(entry Registration, now time.Time) bool {
	if now.Sub(entry.LastHeartbeatAt) > r.heartbeatTimeout {
		return false
	}
	return pidAlive(entry.PID)
}

// pidAlive reports whether pid names a running process. os.FindProcess
// on Unix always succeeds; signal 0 probes liveness without actually
// signaling the process — ESRCH means it no longer exists.
func pidAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
