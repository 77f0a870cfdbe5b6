// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package contextsource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/heytcass/jasper/internal/contextmodel"
)

// maxConcurrentFetches bounds how many sources Build queries at once,
// regardless of how many sources are configured.
const maxConcurrentFetches = 8

// Aggregator fans a fetch out to every enabled Source concurrently and
// assembles a Snapshot from whatever comes back, recording a
// SourceFailure for any source that errors or times out rather than
// failing the whole snapshot.
type Aggregator struct {
	sources       []Source
	sourceTimeout time.Duration
}

// New creates an Aggregator over the given sources. sourceTimeout
// bounds how long any single source's Fetch may run; zero means no
// per-source timeout beyond ctx's own deadline.
func New(sources []Source, sourceTimeout time.Duration) *Aggregator {
	return &Aggregator{sources: sources, sourceTimeout: sourceTimeout}
}

// SourceCount returns the number of sources this aggregator queries,
// letting a caller distinguish a partial snapshot from total
// aggregation failure (every source failed).
func (a *Aggregator) SourceCount() int {
	return len(a.sources)
}

// Build queries every source concurrently and canonicalizes the
// combined result into a Snapshot. Unlike Source.Fetch, Build never
// returns an error for a single source's failure — that becomes a
// SourceFailure entry on the resulting snapshot instead.
func (a *Aggregator) Build(ctx context.Context, now time.Time, horizonEnd time.Time, opts contextmodel.CanonicalizeOptions) contextmodel.Snapshot {
	var (
		mu       sync.Mutex
		items    []contextmodel.Item
		failures []contextmodel.SourceFailure
		wg       sync.WaitGroup
		sem      = make(chan struct{}, maxConcurrentFetches)
	)

	for _, source := range a.sources {
		wg.Add(1)
		go func(source Source) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			fetched, err := a.fetch(ctx, source, now, horizonEnd)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, contextmodel.SourceFailure{
					SourceID: source.ID(),
					Reason:   err.Error(),
				})
				return
			}
			items = append(items, fetched...)
		}(source)
	}

	wg.Wait()

	return contextmodel.NewSnapshot(now, now, horizonEnd, items, failures, opts)
}

// fetch calls source.Fetch, converting a panic into an error so one
// misbehaving source (e.g. a nil credential it assumed would always be
// set) becomes a SourceFailure on the snapshot rather than taking the
// whole tick down.
func (a *Aggregator) fetch(ctx context.Context, source Source, now, horizonEnd time.Time) (items []contextmodel.Item, err error) {
	fetchCtx := ctx
	if a.sourceTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, a.sourceTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("contextsource: source panicked: %v", r)
		}
	}()

	return source.Fetch(fetchCtx, now, horizonEnd)
}
