// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the daemon's standard CBOR encoding configuration.
//
// Jasper uses CBOR for every internal protocol: the daemon↔frontend IPC
// socket, the signal-push connection, and the canonical byte encoding
// that feeds the context snapshot fingerprint. Using one wire format
// everywhere means one encoding configuration to reason about.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every internal package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes — required for the fingerprint to be a pure function of
// snapshot content (see internal/contextmodel).
//
// For buffer-oriented operations (fingerprints, on-disk state):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (the IPC socket):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// Every wire type in this repository uses a `cbor` tag; none of them
// round-trip through JSON, so there is no `json`-tag fallback case to
// document here.
package codec
