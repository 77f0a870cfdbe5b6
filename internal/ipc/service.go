// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc exposes the daemon's Unix-socket API: a request/response
// socket for frontend calls (GetLatestInsight, RegisterFrontend, and
// so on, adapted from lib/service.SocketServer) plus a second,
// persistent-connection socket that pushes InsightUpdated and
// DaemonStopping signals to every subscribed frontend.
package ipc

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/heytcass/jasper/internal/frontend"
	"github.com/heytcass/jasper/internal/insight"
	"github.com/heytcass/jasper/lib/clock"
	"github.com/heytcass/jasper/lib/service"
)

// Service wires the request/response socket and the signal socket to
// the insight store and frontend registry. It implements
// pipeline.Notifier so the analysis pipeline can call InsightUpdated
// directly.
type Service struct {
	requestServer *service.SocketServer
	signalPath    string
	hub           *signalHub
	logger        *slog.Logger

	store    *insight.Store
	registry *frontend.Registry
	clock    clock.Clock

	// online tracks whether the last completed tick produced a commit
	// (true) or an error (false); a skipped tick leaves it unchanged,
	// since skipping is a normal outcome, not degraded operation.
	// Starts true: a daemon that hasn't ticked yet isn't known-bad.
	online atomic.Bool

	// forceRefresh is a single-slot request queue: RegisterFrontend et
	// al. run on arbitrary goroutines, but the lifecycle controller
	// drains this from its own tick loop, so a request that arrives
	// while one is already pending is coalesced rather than queued.
	forceRefresh chan struct{}
}

// New creates a Service. requestSocketPath and signalSocketPath must
// differ; Serve listens on both.
func New(requestSocketPath, signalSocketPath string, store *insight.Store, registry *frontend.Registry, c clock.Clock, logger *slog.Logger) *Service {
	s := &Service{
		requestServer: service.NewSocketServer(requestSocketPath, logger),
		signalPath:    signalSocketPath,
		hub:           newSignalHub(logger),
		logger:        logger,
		store:         store,
		registry:      registry,
		clock:         c,
		forceRefresh:  make(chan struct{}, 1),
	}
	s.online.Store(true)
	s.registerHandlers()
	return s
}

// SetOnline records the outcome of the most recently completed tick.
// The lifecycle controller calls this after every Committed or Failed
// tick outcome; GetStatus reports the value back to callers.
func (s *Service) SetOnline(ok bool) {
	s.online.Store(ok)
}

func (s *Service) registerHandlers() {
	s.requestServer.Handle("GetLatestInsight", s.handleGetLatestInsight)
	s.requestServer.Handle("GetInsightById", s.handleGetInsightByID)
	s.requestServer.Handle("RegisterFrontend", s.handleRegisterFrontend)
	s.requestServer.Handle("UnregisterFrontend", s.handleUnregisterFrontend)
	s.requestServer.Handle("Heartbeat", s.handleHeartbeat)
	s.requestServer.Handle("ForceRefresh", s.handleForceRefresh)
	s.requestServer.Handle("GetStatus", s.handleGetStatus)
}

// Serve runs both sockets until ctx is cancelled, returning once both
// have shut down.
func (s *Service) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- s.requestServer.Serve(ctx)
	}()
	go func() {
		defer wg.Done()
		errs <- serveSignals(ctx, s.signalPath, s.hub, s.logger)
	}()

	wg.Wait()
	close(errs)

	var firstErr error
	for err := range errs {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ForceRefreshRequested returns the channel the lifecycle controller
// drains to learn a frontend asked for an out-of-band analysis tick.
func (s *Service) ForceRefreshRequested() <-chan struct{} {
	return s.forceRefresh
}

// InsightUpdated broadcasts a new insight to every subscribed
// frontend. It satisfies pipeline.Notifier.
func (s *Service) InsightUpdated(ctx context.Context, i insight.Insight) {
	s.hub.broadcast(Signal{
		Type:      SignalInsightUpdated,
		InsightID: i.ID,
		Emoji:     i.Emoji,
		Preview:   i.Preview,
	})
}

// DaemonStopping broadcasts imminent shutdown to every subscribed
// frontend, then closes their connections. Called by the lifecycle
// controller before it tears down the sockets.
func (s *Service) DaemonStopping(ctx context.Context) {
	s.hub.broadcast(Signal{Type: SignalDaemonStopping})
	s.hub.closeAll()
}
