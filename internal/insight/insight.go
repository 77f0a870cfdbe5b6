// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package insight implements the durable, append-only insight store: it
// records every LLM-generated insight the analysis pipeline commits and
// tracks which one is current.
package insight

import "time"

// Insight is an immutable record produced by a single analysis pipeline
// run. Once committed it is never mutated; a later fingerprint change
// supersedes it with a new row rather than an edit.
type Insight struct {
	ID                int64
	CreatedAt         time.Time
	ContextFingerprint string
	Emoji             string
	Preview           string
	Body              string
	Urgency           int
	SourceModel       string
	TokenCost         *int64
}

// Draft holds the fields the analysis pipeline supplies for a new
// Insight; ID and CreatedAt are assigned by the store on Append.
type Draft struct {
	ContextFingerprint string
	Emoji              string
	Preview            string
	Body               string
	Urgency            int
	SourceModel        string
	TokenCost          *int64
}

// RetentionPolicy bounds how many insights the store keeps.
type RetentionPolicy struct {
	// RetainLastN is the number of most recent insights to keep. Zero
	// or negative means unlimited. The current insight is never
	// deleted regardless of this value.
	RetainLastN int
}
