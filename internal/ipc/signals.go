// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/heytcass/jasper/internal/codec"
)

// Signal is a push notification delivered to every subscribed
// frontend, independent of any request/response call.
type Signal struct {
	Type      string `cbor:"type"`
	InsightID int64  `cbor:"insight_id,omitempty"`
	Emoji     string `cbor:"emoji,omitempty"`
	Preview   string `cbor:"preview,omitempty"`
}

const (
	SignalInsightUpdated = "insight_updated"
	SignalDaemonStopping = "daemon_stopping"
)

// signalHub fans a Signal out to every subscribed connection. Unlike
// the request/response socket, a signal connection stays open for its
// lifetime; the hub just tracks the live set and writes to all of
// them under one mutex, dropping any connection that errors.
type signalHub struct {
	mu      sync.Mutex
	nextID  int
	clients map[int]net.Conn
	logger  *slog.Logger
}

func newSignalHub(logger *slog.Logger) *signalHub {
	return &signalHub{clients: make(map[int]net.Conn), logger: logger}
}

func (h *signalHub) add(conn net.Conn) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.clients[id] = conn
	return id
}

func (h *signalHub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

func (h *signalHub) broadcast(sig Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.clients {
		if err := codec.NewEncoder(conn).Encode(sig); err != nil {
			h.logger.Debug("signal delivery failed, dropping subscriber", "client_id", id, "error", err)
			conn.Close()
			delete(h.clients, id)
		}
	}
}

func (h *signalHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		conn.Close()
		delete(h.clients, id)
	}
}

// serveSignals accepts subscribe connections on socketPath and holds
// them open until the client disconnects or ctx is cancelled. Each
// connection receives every Signal broadcast after it connects; there
// is no replay of signals sent before it subscribed.
func serveSignals(ctx context.Context, socketPath string, hub *signalHub, logger *slog.Logger) error {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ipc: removing stale signal socket %s: %w", socketPath, err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("ipc: listening on %s: %w", socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(socketPath)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	logger.Info("signal socket listening", "path", socketPath)

	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			logger.Error("signal accept failed", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			handleSubscriber(conn, hub)
		}()
	}

	wg.Wait()
	return nil
}

// handleSubscriber registers conn with the hub and blocks until the
// client disconnects, which is the only way this goroutine learns the
// subscriber is gone (the protocol never expects a request on this
// socket).
func handleSubscriber(conn net.Conn, hub *signalHub) {
	id := hub.add(conn)
	defer hub.remove(id)
	defer conn.Close()

	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}
