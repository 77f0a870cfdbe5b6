// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify maps insight urgency to a notification level and
// defines the Notifier interface the lifecycle controller calls when
// an insight is committed. The actual desktop transport is out of
// scope; the package ships a logging-only Notifier alongside the
// mapping logic.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heytcass/jasper/internal/insight"
)

// Level is a notification urgency bucket, coarser than the raw
// 0-10 insight urgency score.
type Level string

const (
	LevelLow      Level = "low"
	LevelNormal   Level = "normal"
	LevelCritical Level = "critical"
)

// LevelForUrgency buckets a raw insight urgency score (0-10) into a
// notification level: 0-3 is low, 4-7 is normal, 8-10 is critical.
func LevelForUrgency(urgency int) Level {
	switch {
	case urgency <= 3:
		return LevelLow
	case urgency <= 7:
		return LevelNormal
	default:
		return LevelCritical
	}
}

// Notifier is called whenever the daemon wants to surface an event to
// the user outside the request/response and signal-push IPC surface.
// A concrete transport (desktop notification bus, mobile push, etc.)
// implements this; Jasper ships only LogNotifier.
type Notifier interface {
	NotifyInsight(ctx context.Context, i insight.Insight)
}

// LogNotifier records notifications as structured log lines instead
// of delivering them anywhere. It is the default Notifier until a
// real transport is wired in.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier that writes through logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyInsight(ctx context.Context, i insight.Insight) {
	level := LevelForUrgency(i.Urgency)
	n.logger.Info("insight notification",
		"level", level,
		"insight_id", i.ID,
		"urgency", i.Urgency,
		"emoji", i.Emoji,
		"preview", i.Preview,
	)
}

// Title renders a short notification title for an insight: its emoji,
// a space, then its preview.
func Title(i insight.Insight) string {
	return fmt.Sprintf("%s %s", i.Emoji, i.Preview)
}
