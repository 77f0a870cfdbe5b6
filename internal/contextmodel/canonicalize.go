// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package contextmodel

import (
	"sort"
	"strings"
	"unicode"
)

// CanonicalizeOptions controls the normalization pass. RedactPII
// mirrors the config document's privacy.redact_pii flag;
// canonicalization is where redaction happens so that two
// post-redaction-identical snapshots fingerprint identically.
type CanonicalizeOptions struct {
	RedactPII bool
}

// Canonicalize returns items sorted by the stable key
// (StartsAt NULLS LAST ascending, SourceID ascending, SourceUID
// ascending), with optional string fields trimmed, internal
// whitespace collapsed, and trailing punctuation stripped from
// titles. The input slice is not mutated.
//
// Canonicalize(Canonicalize(items)) == Canonicalize(items): every
// normalization step here is idempotent, and re-sorting an
// already-sorted, already-deduplicated-key slice is a no-op.
func Canonicalize(items []Item, opts CanonicalizeOptions) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = normalize(item, opts)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})

	return out
}

func less(a, b Item) bool {
	aStarts, aHasStart := a.StartsAt, a.StartsAt != nil
	bStarts, bHasStart := b.StartsAt, b.StartsAt != nil

	switch {
	case aHasStart && !bHasStart:
		return true
	case !aHasStart && bHasStart:
		return false
	case aHasStart && bHasStart && !aStarts.Equal(*bStarts):
		return aStarts.Before(*bStarts)
	}

	if a.SourceID != b.SourceID {
		return a.SourceID < b.SourceID
	}
	return a.SourceUID < b.SourceUID
}

func normalize(item Item, opts CanonicalizeOptions) Item {
	item.Title = collapseWhitespace(strings.TrimSpace(item.Title))
	item.Title = strings.TrimRightFunc(item.Title, func(r rune) bool {
		return isTrailingPunctuation(r) || unicode.IsSpace(r)
	})
	item.Body = collapseWhitespace(strings.TrimSpace(item.Body))
	item.Location = collapseWhitespace(strings.TrimSpace(item.Location))
	item.Owner = collapseWhitespace(strings.TrimSpace(item.Owner))

	if opts.RedactPII {
		item = redact(item)
	}

	return item
}

func isTrailingPunctuation(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '!':
		return true
	default:
		return false
	}
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				b.WriteRune(' ')
			}
			lastWasSpace = true
			continue
		}
		lastWasSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// redact removes the location and owner fields and truncates body to
// a fixed length, as a deterministic (pure) function of the item
// content — it never consults external state, so applying it twice
// produces the same result as applying it once.
func redact(item Item) Item {
	item.Location = ""
	item.Owner = ""
	const maxRedactedBodyLength = 200
	if len(item.Body) > maxRedactedBodyLength {
		item.Body = item.Body[:maxRedactedBodyLength]
	}
	return item
}
