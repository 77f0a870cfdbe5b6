// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package significance

import (
	"testing"
	"time"

	"github.com/heytcass/jasper/internal/contextmodel"
)

var baseNow = time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC)

func snap(items []contextmodel.Item) contextmodel.Snapshot {
	return contextmodel.NewSnapshot(baseNow, baseNow, baseNow.AddDate(0, 0, 7), items, nil, contextmodel.CanonicalizeOptions{})
}

func hoursFrom(h int) *time.Time {
	t := baseNow.Add(time.Duration(h) * time.Hour)
	return &t
}

func daysFrom(d int) *time.Time {
	t := baseNow.AddDate(0, 0, d)
	return &t
}

func defaultConfig() Config {
	return Config{HighUrgencyDays: 2, SignificantChangeFloor: 1, MinAnalysisInterval: time.Minute}
}

func TestColdStart(t *testing.T) {
	next := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1", StartsAt: hoursFrom(1)}})

	d, trigger := Evaluate(nil, next, defaultConfig(), false, baseNow, Trigger{})
	if d.Kind != Significant {
		t.Fatalf("Kind = %v, want Significant", d.Kind)
	}
	if !trigger.Seen {
		t.Error("trigger should be recorded after a Significant decision")
	}
}

func TestUnchangedFingerprintMatch(t *testing.T) {
	items := []contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1", StartsAt: hoursFrom(1)}}
	prev := snap(items)
	next := snap(items)

	d, _ := Evaluate(&prev, next, defaultConfig(), false, baseNow, Trigger{Seen: true, At: baseNow.Add(-time.Hour)})
	if d.Kind != Unchanged {
		t.Fatalf("Kind = %v, want Unchanged", d.Kind)
	}
}

func TestForcedBypassesRateLimit(t *testing.T) {
	prev := snap(nil)
	next := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1"}})

	last := Trigger{Seen: true, At: baseNow.Add(-5 * time.Second)}
	d, trigger := Evaluate(&prev, next, defaultConfig(), true, baseNow, last)

	if d.Kind != Forced {
		t.Fatalf("Kind = %v, want Forced", d.Kind)
	}
	if !trigger.At.Equal(baseNow) {
		t.Error("Forced decision should advance the trigger clock")
	}
}

func TestNearHorizonTitleChangeIsSignificant(t *testing.T) {
	prev := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1", StartsAt: hoursFrom(1)}})
	next := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1-edited", StartsAt: hoursFrom(1)}})

	d, _ := Evaluate(&prev, next, defaultConfig(), false, baseNow, Trigger{})
	if d.Kind != Significant {
		t.Fatalf("Kind = %v, want Significant", d.Kind)
	}
}

func TestFarHorizonBodyOnlyChangeIsMinor(t *testing.T) {
	prev := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1", Body: "old", StartsAt: daysFrom(10)}})
	next := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1", Body: "new", StartsAt: daysFrom(10)}})

	d, _ := Evaluate(&prev, next, defaultConfig(), false, baseNow, Trigger{})
	if d.Kind != Minor {
		t.Fatalf("Kind = %v, want Minor", d.Kind)
	}
}

func TestNearHorizonBodyOnlyChangeIsSignificant(t *testing.T) {
	cfg := defaultConfig()
	prev := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1", Body: "old", StartsAt: daysFrom(1)}})
	next := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1", Body: "new", StartsAt: daysFrom(1)}})

	d, _ := Evaluate(&prev, next, cfg, false, baseNow, Trigger{})
	if d.Kind != Significant {
		t.Fatalf("Kind = %v, want Significant (near-horizon body change)", d.Kind)
	}
}

func TestRateLimitDowngradesNaturalTick(t *testing.T) {
	cfg := Config{HighUrgencyDays: 2, SignificantChangeFloor: 1, MinAnalysisInterval: 60 * time.Second}

	prev := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1", StartsAt: hoursFrom(1)}})
	next := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1-changed", StartsAt: hoursFrom(1)}})

	last := Trigger{Seen: true, At: baseNow.Add(-10 * time.Second)}
	d, _ := Evaluate(&prev, next, cfg, false, baseNow.Add(20*time.Second), last)

	if d.Kind != Minor {
		t.Fatalf("Kind = %v, want Minor (rate-limited)", d.Kind)
	}
	if len(d.Reasons) == 0 || d.Reasons[0] != "rate-limited" {
		t.Errorf("Reasons = %v, want [\"rate-limited\"]", d.Reasons)
	}
}

func TestBoundaryExactlyAtHighUrgencyDays(t *testing.T) {
	cfg := defaultConfig()
	prev := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1", StartsAt: daysFrom(2)}})
	next := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1", Body: "changed", StartsAt: daysFrom(2)}})

	d, _ := Evaluate(&prev, next, cfg, false, baseNow, Trigger{})
	if d.Kind != Significant {
		t.Fatalf("Kind = %v, want Significant at exactly the near-horizon boundary", d.Kind)
	}
}

func TestQuietHoursDowngradesNaturalTick(t *testing.T) {
	cfg := defaultConfig()
	cfg.QuietHours = QuietHours{Enabled: true, Start: 22 * 60, End: 8 * 60, Location: time.UTC}

	prev := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1", StartsAt: hoursFrom(1)}})
	next := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1-changed", StartsAt: hoursFrom(1)}})

	night := time.Date(2026, 8, 6, 23, 0, 0, 0, time.UTC)
	d, _ := Evaluate(&prev, next, cfg, false, night, Trigger{})

	if d.Kind != Minor {
		t.Fatalf("Kind = %v, want Minor (quiet hours)", d.Kind)
	}
	if len(d.Reasons) == 0 || d.Reasons[0] != "quiet-hours" {
		t.Errorf("Reasons = %v, want [\"quiet-hours\"]", d.Reasons)
	}
}

func TestQuietHoursDoesNotAffectOutsideWindow(t *testing.T) {
	cfg := defaultConfig()
	cfg.QuietHours = QuietHours{Enabled: true, Start: 22 * 60, End: 8 * 60, Location: time.UTC}

	prev := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1", StartsAt: hoursFrom(1)}})
	next := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1-changed", StartsAt: hoursFrom(1)}})

	d, _ := Evaluate(&prev, next, cfg, false, baseNow, Trigger{})
	if d.Kind != Significant {
		t.Fatalf("Kind = %v, want Significant (09:00 UTC is outside 22:00-08:00 quiet hours)", d.Kind)
	}
}

func TestForcedBypassesQuietHours(t *testing.T) {
	cfg := defaultConfig()
	cfg.QuietHours = QuietHours{Enabled: true, Start: 22 * 60, End: 8 * 60, Location: time.UTC}

	prev := snap(nil)
	next := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1"}})

	night := time.Date(2026, 8, 6, 23, 0, 0, 0, time.UTC)
	d, _ := Evaluate(&prev, next, cfg, true, night, Trigger{})
	if d.Kind != Forced {
		t.Fatalf("Kind = %v, want Forced (bypasses quiet hours)", d.Kind)
	}
}

func TestQuietHoursEqualStartEndSpansEntireDay(t *testing.T) {
	q := QuietHours{Enabled: true, Start: 6 * 60, End: 6 * 60, Location: time.UTC}
	for _, hour := range []int{0, 6, 12, 23} {
		at := time.Date(2026, 8, 6, hour, 0, 0, 0, time.UTC)
		if !q.contains(at) {
			t.Errorf("contains(%v) = false, want true (equal start/end spans the full day)", at)
		}
	}
}

func TestQuietHoursDisabledNeverContains(t *testing.T) {
	q := QuietHours{Enabled: false, Start: 22 * 60, End: 8 * 60, Location: time.UTC}
	if q.contains(time.Date(2026, 8, 6, 23, 0, 0, 0, time.UTC)) {
		t.Error("a disabled QuietHours should never contain any time")
	}
}

func TestBoundaryOneDayBeyondHighUrgencyDays(t *testing.T) {
	cfg := defaultConfig()
	prev := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1", StartsAt: daysFrom(3)}})
	next := snap([]contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "T1", Body: "changed", StartsAt: daysFrom(3)}})

	d, _ := Evaluate(&prev, next, cfg, false, baseNow, Trigger{})
	if d.Kind != Minor {
		t.Fatalf("Kind = %v, want Minor one day beyond the near-horizon boundary", d.Kind)
	}
}
