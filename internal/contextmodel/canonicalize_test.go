// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package contextmodel

import (
	"testing"
	"time"
)

func t1(hoursFromNow int) *time.Time {
	tt := time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC).Add(time.Duration(hoursFromNow) * time.Hour)
	return &tt
}

func TestCanonicalizeSortOrder(t *testing.T) {
	items := []Item{
		{SourceID: "cal", SourceUID: "b", StartsAt: t1(2), Title: "second"},
		{SourceID: "cal", SourceUID: "a", StartsAt: nil, Title: "no start time"},
		{SourceID: "cal", SourceUID: "c", StartsAt: t1(1), Title: "first"},
	}

	got := Canonicalize(items, CanonicalizeOptions{})

	want := []string{"first", "second", "no start time"}
	for i, w := range want {
		if got[i].Title != w {
			t.Errorf("position %d: got title %q, want %q", i, got[i].Title, w)
		}
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	items := []Item{
		{SourceID: "cal", SourceUID: "a", Title: "  Meeting   with Bob.  ", Body: "  agenda\n\nitems  "},
		{SourceID: "cal", SourceUID: "b", StartsAt: t1(3), Title: "Standup"},
	}

	once := Canonicalize(items, CanonicalizeOptions{})
	twice := Canonicalize(once, CanonicalizeOptions{})

	if Fingerprint(once) != Fingerprint(twice) {
		t.Error("Canonicalize should be idempotent: fingerprints diverged")
	}
}

func TestCanonicalizeIdempotentWithSpaceBeforeTrailingPunctuation(t *testing.T) {
	items := []Item{
		{SourceID: "cal", SourceUID: "a", Title: "Team sync ."},
	}

	once := Canonicalize(items, CanonicalizeOptions{})
	if once[0].Title != "Team sync" {
		t.Errorf("Title = %q, want %q", once[0].Title, "Team sync")
	}

	twice := Canonicalize(once, CanonicalizeOptions{})
	if Fingerprint(once) != Fingerprint(twice) {
		t.Error("Canonicalize should be idempotent: fingerprints diverged")
	}
}

func TestCanonicalizeNormalizesWhitespaceAndPunctuation(t *testing.T) {
	items := []Item{
		{SourceID: "cal", SourceUID: "a", Title: "  Team   sync.  "},
	}
	got := Canonicalize(items, CanonicalizeOptions{})
	if got[0].Title != "Team sync" {
		t.Errorf("Title = %q, want %q", got[0].Title, "Team sync")
	}
}

func TestCanonicalizeRedactsPII(t *testing.T) {
	items := []Item{
		{SourceID: "cal", SourceUID: "a", Title: "1:1", Location: "Room 4B", Owner: "alice@example.com"},
	}
	got := Canonicalize(items, CanonicalizeOptions{RedactPII: true})
	if got[0].Location != "" || got[0].Owner != "" {
		t.Errorf("redaction should clear Location and Owner, got %+v", got[0])
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	itemsA := []Item{
		{SourceID: "cal", SourceUID: "a", StartsAt: t1(1), Title: "T1"},
		{SourceID: "cal", SourceUID: "b", StartsAt: t1(2), Title: "T2"},
	}
	itemsB := []Item{
		{SourceID: "cal", SourceUID: "b", StartsAt: t1(2), Title: "T2"},
		{SourceID: "cal", SourceUID: "a", StartsAt: t1(1), Title: "T1"},
	}

	fpA := Fingerprint(Canonicalize(itemsA, CanonicalizeOptions{}))
	fpB := Fingerprint(Canonicalize(itemsB, CanonicalizeOptions{}))

	if fpA != fpB {
		t.Errorf("fingerprint should be independent of input order: %s != %s", fpA, fpB)
	}
}

func TestFingerprintChangesWithContent(t *testing.T) {
	base := []Item{{SourceID: "cal", SourceUID: "a", Title: "Original"}}
	changed := []Item{{SourceID: "cal", SourceUID: "a", Title: "Changed"}}

	fpBase := Fingerprint(Canonicalize(base, CanonicalizeOptions{}))
	fpChanged := Fingerprint(Canonicalize(changed, CanonicalizeOptions{}))

	if fpBase == fpChanged {
		t.Error("fingerprint should change when item content changes")
	}
}

func TestFingerprintEmptySnapshotIsStable(t *testing.T) {
	fp1 := Fingerprint(Canonicalize(nil, CanonicalizeOptions{}))
	fp2 := Fingerprint(Canonicalize([]Item{}, CanonicalizeOptions{}))
	if fp1 != fp2 {
		t.Error("empty item lists should produce the same fingerprint regardless of nil vs empty slice")
	}
}

func TestNewSnapshotExcludesTakenAt(t *testing.T) {
	items := []Item{{SourceID: "cal", SourceUID: "a", Title: "T1"}}
	horizon := time.Date(2026, 8, 13, 0, 0, 0, 0, time.UTC)

	s1 := NewSnapshot(time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC), time.Now(), horizon, items, nil, CanonicalizeOptions{})
	s2 := NewSnapshot(time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC), time.Now(), horizon, items, nil, CanonicalizeOptions{})

	if s1.Fingerprint != s2.Fingerprint {
		t.Error("two snapshots differing only in TakenAt should fingerprint identically")
	}
}
