// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for sensitive data such
// as passwords, access tokens, and encryption keys.
//
// [Buffer] allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock (preventing swap), and marks it
// excluded from core dumps via madvise(MADV_DONTDUMP). On Close, the
// memory is zeroed, unlocked, and unmapped. Because the memory lives
// outside the Go heap, the garbage collector cannot copy or relocate
// it, guaranteeing secret material does not persist after release.
//
// Constructors:
//
//   - [New] -- allocates a zero-filled buffer of a given size
//   - [NewFromBytes] -- copies into protected memory, zeros the source
//   - [ReadFromPath] -- reads a trimmed secret from a file or stdin
//
// Access via [Buffer.Bytes] (slice into mmap region) or
// [Buffer.String] (heap copy for API boundaries). Buffer has no
// comparison or io.WriterTo method. After Close, Bytes and String
// panic. Close is idempotent.
//
// [Resolver] turns a reference string (env:, file:, sealed: or an
// inline literal) into a cached Buffer; cmd/jasperd and
// internal/daemon use it to hold the LLM API key and source
// credentials for the lifetime of the process.
//
// Depends on golang.org/x/sys/unix for the buffer and
// golang.org/x/crypto (scrypt, chacha20poly1305) for sealed
// keystores. No other internal dependencies.
package secret
