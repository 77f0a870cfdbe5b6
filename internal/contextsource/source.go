// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package contextsource defines the Source interface external context
// providers implement, and an Aggregator that fans out to all enabled
// sources concurrently and assembles the results into context items.
package contextsource

import (
	"context"
	"time"

	"github.com/heytcass/jasper/internal/contextmodel"
)

// Source is one external collaborator that contributes context items
// for a given horizon window. Concrete sources (calendar, tasks,
// notes, weather) each wrap their own HTTP client or filesystem scan.
type Source interface {
	// ID identifies the source; used as contextmodel.Item.SourceID and
	// in SourceFailure records.
	ID() string

	// Fetch returns context items whose relevance window falls between
	// horizonStart and horizonEnd.
	Fetch(ctx context.Context, horizonStart, horizonEnd time.Time) ([]contextmodel.Item, error)
}
