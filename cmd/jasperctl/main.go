// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Jasperctl is a thin command-line wrapper around jasperd's IPC
// surface. It never re-runs analysis itself: every subcommand either
// reads state through the request/response socket or, for refresh,
// enqueues a ForceRefresh for the daemon's own tick loop to service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/heytcass/jasper/internal/codec"
	"github.com/heytcass/jasper/internal/config"
	"github.com/heytcass/jasper/internal/frontend"
	"github.com/heytcass/jasper/internal/ipc"
	"github.com/heytcass/jasper/lib/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	runtimeDir, err := config.RuntimeDir()
	if err != nil {
		return fmt.Errorf("resolving runtime directory: %w", err)
	}
	requestSocket := filepath.Join(runtimeDir, "jasperd.sock")
	signalSocket := filepath.Join(runtimeDir, "jasperd.signals.sock")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch subcommand := os.Args[1]; subcommand {
	case "status":
		return runStatus(ctx, requestSocket)
	case "latest":
		return runLatest(ctx, requestSocket)
	case "get":
		return runGet(ctx, requestSocket, os.Args[2:])
	case "refresh":
		return runRefresh(ctx, requestSocket)
	case "watch":
		return runWatch(ctx, requestSocket, signalSocket)
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: jasperctl <subcommand> [flags]

Subcommands:
  status    Print daemon online state, attached frontend count, latest insight id
  latest    Print the current insight
  get       Print an insight by id (jasperctl get -id 42)
  refresh   Request an out-of-band analysis tick
  watch     Register as a frontend and stream insight updates until interrupted

Run 'jasperctl <subcommand> -h' for subcommand flags.
`)
}

// callTimeout bounds every request/response IPC call jasperctl makes.
const callTimeout = 5 * time.Second

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, callTimeout)
}

func runStatus(ctx context.Context, socketPath string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var status struct {
		Online        bool  `cbor:"online"`
		FrontendCount int   `cbor:"frontend_count"`
		LastInsightID int64 `cbor:"last_insight_id"`
	}
	if err := service.Call(ctx, socketPath, "GetStatus", nil, &status); err != nil {
		return err
	}
	return printJSON(status)
}

func runLatest(ctx context.Context, socketPath string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var insight insightView
	if err := service.Call(ctx, socketPath, "GetLatestInsight", nil, &insight); err != nil {
		return err
	}
	return printJSON(insight)
}

func runGet(ctx context.Context, socketPath string, args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	id := fs.Int64("id", 0, "insight id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("-id is required")
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var insight insightView
	if err := service.Call(ctx, socketPath, "GetInsightById", map[string]any{"id": *id}, &insight); err != nil {
		return err
	}
	return printJSON(insight)
}

func runRefresh(ctx context.Context, socketPath string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var resp struct {
		Accepted bool `cbor:"accepted"`
	}
	if err := service.Call(ctx, socketPath, "ForceRefresh", nil, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

// watchHeartbeatInterval must stay comfortably under the daemon's
// heartbeat_timeout_seconds or the registry sweeps the registration
// out from under a still-running watch.
const watchHeartbeatInterval = 20 * time.Second

// runWatch registers jasperctl itself as an ephemeral frontend (a
// fresh frontend.NewID since a one-shot CLI process has no persisted
// identity across runs), keeps it alive with a heartbeat loop, and
// prints every insight_updated signal until ctx is cancelled or the
// signal socket closes.
func runWatch(ctx context.Context, requestSocket, signalSocket string) error {
	frontendID := frontend.NewID()
	pid := os.Getpid()

	registerCtx, cancel := withTimeout(ctx)
	var registered struct {
		Accepted   bool   `cbor:"accepted"`
		FrontendID string `cbor:"frontend_id"`
	}
	err := service.Call(registerCtx, requestSocket, "RegisterFrontend", map[string]any{
		"frontend_id":       frontendID,
		"pid":               pid,
		"notify_preference": string(frontend.NotifyAll),
	}, &registered)
	cancel()
	if err != nil {
		return fmt.Errorf("registering: %w", err)
	}
	if !registered.Accepted {
		return fmt.Errorf("registration rejected for frontend_id %q", frontendID)
	}
	defer unregister(requestSocket, frontendID)

	conn, err := net.DialTimeout("unix", signalSocket, callTimeout)
	if err != nil {
		return fmt.Errorf("connecting to signal socket: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go heartbeatLoop(ctx, requestSocket, frontendID)

	decoder := codec.NewDecoder(conn)
	for {
		var sig ipc.Signal
		if err := decoder.Decode(&sig); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("signal socket closed: %w", err)
		}
		if err := printJSON(sig); err != nil {
			return err
		}
		if sig.Type == ipc.SignalDaemonStopping {
			return nil
		}
	}
}

func heartbeatLoop(ctx context.Context, requestSocket, frontendID string) {
	ticker := time.NewTicker(watchHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hbCtx, cancel := withTimeout(ctx)
			service.Call(hbCtx, requestSocket, "Heartbeat", map[string]any{"frontend_id": frontendID}, nil)
			cancel()
		}
	}
}

func unregister(requestSocket, frontendID string) {
	ctx, cancel := withTimeout(context.Background())
	defer cancel()
	service.Call(ctx, requestSocket, "UnregisterFrontend", map[string]any{"frontend_id": frontendID}, nil)
}

// insightView mirrors internal/ipc's wire shape for GetLatestInsight
// and GetInsightById responses; jasperctl only ever decodes it, never
// constructs one, so it stays a package-local shadow rather than an
// exported type internal/ipc would need to expose.
type insightView struct {
	ID        int64  `cbor:"id"`
	CreatedAt string `cbor:"created_at"`
	Emoji     string `cbor:"emoji"`
	Preview   string `cbor:"preview"`
	Body      string `cbor:"body"`
	Urgency   int    `cbor:"urgency"`
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
