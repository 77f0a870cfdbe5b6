// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package contextsource_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/heytcass/jasper/internal/contextmodel"
	"github.com/heytcass/jasper/internal/contextsource"
)

type stubSource struct {
	id    string
	items []contextmodel.Item
	err   error
}

func (s stubSource) ID() string { return s.id }

func (s stubSource) Fetch(ctx context.Context, horizonStart, horizonEnd time.Time) ([]contextmodel.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func TestAggregatorCombinesAllSources(t *testing.T) {
	now := time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC)
	sources := []contextsource.Source{
		stubSource{id: "cal", items: []contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "Event"}}},
		stubSource{id: "tasks", items: []contextmodel.Item{{SourceID: "tasks", SourceUID: "b", Title: "Task"}}},
	}

	agg := contextsource.New(sources, 0)
	snap := agg.Build(context.Background(), now, now.AddDate(0, 0, 7), contextmodel.CanonicalizeOptions{})

	if len(snap.Items) != 2 {
		t.Fatalf("len(snap.Items) = %d, want 2", len(snap.Items))
	}
	if snap.Partial() {
		t.Error("snapshot should not be partial when every source succeeds")
	}
}

type panickingSource struct {
	id string
}

func (s panickingSource) ID() string { return s.id }

func (s panickingSource) Fetch(ctx context.Context, horizonStart, horizonEnd time.Time) ([]contextmodel.Item, error) {
	panic("nil credential")
}

func TestAggregatorRecordsPanicAsFailure(t *testing.T) {
	now := time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC)
	sources := []contextsource.Source{
		stubSource{id: "cal", items: []contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "Event"}}},
		panickingSource{id: "calendar"},
	}

	agg := contextsource.New(sources, 0)
	snap := agg.Build(context.Background(), now, now.AddDate(0, 0, 7), contextmodel.CanonicalizeOptions{})

	if len(snap.Items) != 1 {
		t.Fatalf("len(snap.Items) = %d, want 1", len(snap.Items))
	}
	if len(snap.Failures) != 1 || snap.Failures[0].SourceID != "calendar" {
		t.Errorf("Failures = %+v, want one entry for calendar", snap.Failures)
	}
}

func TestAggregatorRecordsFailuresAsPartial(t *testing.T) {
	now := time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC)
	sources := []contextsource.Source{
		stubSource{id: "cal", items: []contextmodel.Item{{SourceID: "cal", SourceUID: "a", Title: "Event"}}},
		stubSource{id: "weather", err: errors.New("upstream 503")},
	}

	agg := contextsource.New(sources, 0)
	snap := agg.Build(context.Background(), now, now.AddDate(0, 0, 7), contextmodel.CanonicalizeOptions{})

	if len(snap.Items) != 1 {
		t.Fatalf("len(snap.Items) = %d, want 1", len(snap.Items))
	}
	if !snap.Partial() {
		t.Error("snapshot should be partial when a source fails")
	}
	if len(snap.Failures) != 1 || snap.Failures[0].SourceID != "weather" {
		t.Errorf("Failures = %+v, want one entry for weather", snap.Failures)
	}
}
