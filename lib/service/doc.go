// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the CBOR-over-Unix-socket request/response
// scaffolding used by the daemon's IPC surface: connection accept
// loop, action dispatch, request size limits, and read/write
// deadlines. Callers register ActionFunc handlers by name and call
// Serve; the package handles connection lifecycle so the IPC layer
// only implements action semantics.
package service
