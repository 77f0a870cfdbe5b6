// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package notify_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/heytcass/jasper/internal/insight"
	"github.com/heytcass/jasper/internal/notify"
)

func TestLevelForUrgencyBuckets(t *testing.T) {
	cases := []struct {
		urgency int
		want    notify.Level
	}{
		{0, notify.LevelLow},
		{3, notify.LevelLow},
		{4, notify.LevelNormal},
		{7, notify.LevelNormal},
		{8, notify.LevelCritical},
		{10, notify.LevelCritical},
	}
	for _, tc := range cases {
		if got := notify.LevelForUrgency(tc.urgency); got != tc.want {
			t.Errorf("LevelForUrgency(%d) = %s, want %s", tc.urgency, got, tc.want)
		}
	}
}

func TestLogNotifierDoesNotPanic(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := notify.NewLogNotifier(logger)
	n.NotifyInsight(context.Background(), insight.Insight{ID: 1, Urgency: 5, Emoji: "☕", Preview: "clear morning"})
}

func TestTitleFormatsEmojiAndPreview(t *testing.T) {
	title := notify.Title(insight.Insight{Emoji: "☕", Preview: "clear morning"})
	if title != "☕ clear morning" {
		t.Errorf("Title() = %q", title)
	}
}
