// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/heytcass/jasper/internal/codec"
)

// dialTimeout bounds how long Call waits to connect to the socket.
// The daemon accepts connections as fast as the OS hands them off, so
// anything beyond a connection refused/timed-out case means the socket
// isn't there.
const dialTimeout = 3 * time.Second

// Call dials socketPath, sends a single request for action with the
// given fields merged in (plus "action" itself), and decodes the
// response's data field into result. Pass a nil result when the action
// returns no data (Response.OK is still checked). One connection per
// call, matching SocketServer's one-request-per-connection contract.
func Call(ctx context.Context, socketPath, action string, fields map[string]any, result any) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", socketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(readTimeout))
	}

	request := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		request[k] = v
	}
	request["action"] = action

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	// The server closes the connection after writing its response, so
	// a client-side io.LimitReader isn't needed here the way it is
	// server-side against untrusted input.
	var resp Response
	if err := codec.NewDecoder(conn).Decode(&resp); err != nil {
		if err == io.EOF {
			return fmt.Errorf("no response from %s", socketPath)
		}
		return fmt.Errorf("decoding response: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("%s: %s", action, resp.Error)
	}
	if result != nil && len(resp.Data) > 0 {
		if err := codec.Unmarshal(resp.Data, result); err != nil {
			return fmt.Errorf("decoding %s response data: %w", action, err)
		}
	}
	return nil
}
