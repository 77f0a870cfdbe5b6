// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"strings"

	"github.com/heytcass/jasper/internal/contextmodel"
)

const systemPrompt = `You are Jasper, a personal insight assistant. You are given a
window of upcoming calendar events, tasks, notes, and weather. Reply with a
single JSON object and nothing else, matching exactly:
{"emoji": "<one emoji>", "preview": "<short one-line summary>", "body": "<a few sentences>", "urgency": <integer 0-10>}
Urgency 0 means nothing needs attention; 10 means something needs attention
immediately. Do not include markdown fences or any text outside the JSON object.`

// buildPromptBundle renders a header summarizing the horizon and item
// counts, followed by the canonicalized items. When items exceeds
// maxItems it keeps only the maxItems most recent (oldest-first
// truncation) and notes how many were dropped.
func buildPromptBundle(snapshot contextmodel.Snapshot, maxItems int) string {
	items := snapshot.Items
	dropped := 0
	if maxItems > 0 && len(items) > maxItems {
		dropped = len(items) - maxItems
		items = items[dropped:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Horizon: %s to %s\n", snapshot.HorizonStart.Format("2006-01-02T15:04"), snapshot.HorizonEnd.Format("2006-01-02T15:04"))
	fmt.Fprintf(&b, "Items: %d", len(snapshot.Items))
	if dropped > 0 {
		fmt.Fprintf(&b, " (%d oldest omitted for length)", dropped)
	}
	b.WriteString("\n")
	if snapshot.Partial() {
		b.WriteString("Note: some context sources failed this cycle:")
		for _, f := range snapshot.Failures {
			fmt.Fprintf(&b, " %s (%s)", f.SourceID, f.Reason)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, item := range items {
		fmt.Fprintf(&b, "- [%s/%s] %s", item.Kind, item.SourceID, item.Title)
		if item.StartsAt != nil {
			fmt.Fprintf(&b, " @ %s", item.StartsAt.Format("2006-01-02T15:04"))
		}
		if item.Location != "" {
			fmt.Fprintf(&b, " (%s)", item.Location)
		}
		b.WriteString("\n")
		if item.Body != "" {
			fmt.Fprintf(&b, "  %s\n", item.Body)
		}
	}

	return b.String()
}
