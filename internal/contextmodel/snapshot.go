// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package contextmodel

import "time"

// Snapshot is an immutable, canonicalized view of personal context
// over a bounded time horizon, produced once per lifecycle-controller
// tick.
//
// Items are always stored in the canonical order produced by
// [Canonicalize]; Fingerprint is a pure function of that ordering
// (see fingerprint.go). TakenAt is excluded from the fingerprint by
// construction — only NewSnapshot sees it, and it never enters the
// byte stream that gets hashed.
type Snapshot struct {
	TakenAt      time.Time
	HorizonStart time.Time
	HorizonEnd   time.Time
	Items        []Item
	Fingerprint  string

	// Failures records which enabled sources did not contribute to
	// this snapshot, and why. A non-empty Failures alongside non-empty
	// Items marks a partial snapshot; the aggregator is responsible for
	// deciding when Failures covers every source rather than some of
	// them.
	Failures []SourceFailure
}

// SourceFailure records one context source's failure to contribute to
// a snapshot.
type SourceFailure struct {
	SourceID string
	Reason   string
}

// Partial reports whether at least one source failed for this
// snapshot. It does not distinguish the case where every source
// failed; the pipeline checks that against the aggregator's source
// count before using the snapshot.
func (s Snapshot) Partial() bool {
	return len(s.Failures) > 0
}

// NewSnapshot canonicalizes items (sort, normalize, optionally redact)
// and computes the resulting fingerprint. takenAt is recorded on the
// result but never influences Fingerprint.
func NewSnapshot(takenAt, horizonStart, horizonEnd time.Time, items []Item, failures []SourceFailure, opts CanonicalizeOptions) Snapshot {
	canonical := Canonicalize(items, opts)
	return Snapshot{
		TakenAt:      takenAt,
		HorizonStart: horizonStart,
		HorizonEnd:   horizonEnd,
		Items:        canonical,
		Fingerprint:  Fingerprint(canonical),
		Failures:     failures,
	}
}
