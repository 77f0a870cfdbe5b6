// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package contextmodel

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/heytcass/jasper/internal/codec"
)

// wireItem is the CBOR-encoded shape fingerprinted for each item.
// TakenAt never appears here — Fingerprint only ever sees Items, never
// the Snapshot that owns them, so there is no field to accidentally
// include.
type wireItem struct {
	SourceID  string  `cbor:"source_id"`
	Kind      string  `cbor:"kind"`
	StartsAt  *int64  `cbor:"starts_at,omitempty"`
	EndsAt    *int64  `cbor:"ends_at,omitempty"`
	Title     string  `cbor:"title"`
	Body      string  `cbor:"body,omitempty"`
	Location  string  `cbor:"location,omitempty"`
	Owner     string  `cbor:"owner,omitempty"`
	SourceUID string  `cbor:"source_uid"`
}

// Fingerprint computes the content-addressed digest of already
// canonicalized items: encode as a length-prefixed CBOR array (Core
// Deterministic Encoding, so identical content always produces
// identical bytes) and take its SHA-256. Callers must pass items that
// have already gone through [Canonicalize] — Fingerprint does not
// re-sort or re-normalize.
func Fingerprint(items []Item) string {
	wire := make([]wireItem, len(items))
	for i, item := range items {
		wire[i] = toWireItem(item)
	}

	// codec.Marshal produces Core Deterministic Encoding: a CBOR array
	// header is itself a length prefix, giving a stable binary framing
	// without a bespoke length-prefix format.
	encoded, err := codec.Marshal(wire)
	if err != nil {
		// wireItem contains no cyclic or unsupported types; a
		// marshal failure here would indicate a programming error,
		// not a runtime condition to recover from.
		panic("contextmodel: marshaling canonical items: " + err.Error())
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

func toWireItem(item Item) wireItem {
	w := wireItem{
		SourceID:  item.SourceID,
		Kind:      string(item.Kind),
		Title:     item.Title,
		Body:      item.Body,
		Location:  item.Location,
		Owner:     item.Owner,
		SourceUID: item.SourceUID,
	}
	if item.StartsAt != nil {
		nanos := item.StartsAt.UnixNano()
		w.StartsAt = &nanos
	}
	if item.EndsAt != nil {
		nanos := item.EndsAt.UnixNano()
		w.EndsAt = &nanos
	}
	return w
}
