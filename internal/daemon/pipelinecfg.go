// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"time"

	"github.com/heytcass/jasper/internal/config"
	"github.com/heytcass/jasper/internal/contextmodel"
	"github.com/heytcass/jasper/internal/insight"
	"github.com/heytcass/jasper/internal/pipeline"
	"github.com/heytcass/jasper/internal/significance"
)

// PipelineConfigFromConfig maps the daemon's loaded configuration onto
// the analysis pipeline's tunables. Kept as a pure function so both
// startup wiring and hot-reload go through the same translation.
func PipelineConfigFromConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		PlanningHorizon: time.Duration(cfg.General.PlanningHorizonDays) * 24 * time.Hour,
		Significance: significance.Config{
			HighUrgencyDays:        cfg.Insights.HighUrgencyDays,
			SignificantChangeFloor: cfg.Insights.SignificantChangeFloor,
			MinAnalysisInterval:    time.Duration(cfg.General.MinAnalysisIntervalSeconds) * time.Second,
			QuietHours:             quietHoursFromConfig(cfg),
		},
		Model:           cfg.AI.Model,
		Temperature:     cfg.AI.Temperature,
		MaxOutputTokens: defaultMaxOutputTokens,
		MaxPromptItems:  defaultMaxPromptItems,
		RequestTimeout:  time.Duration(cfg.AI.RequestTimeoutSeconds) * time.Second,
		MaxRetries:      cfg.AI.MaxRetries,
		CanonOpts:       contextmodel.CanonicalizeOptions{RedactPII: cfg.Privacy.RedactPII},
		Retention:       insight.RetentionPolicy{RetainLastN: cfg.Insights.RetainLastN},
		MaxPerDay:       cfg.Insights.MaxPerDay,
	}
}

// quietHoursFromConfig converts the validated "HH:MM" config strings
// into significance.QuietHours. Config.Validate already rejects
// unparsable values before a Config ever reaches here, so a parse
// failure at this point is treated as "feature disabled" rather than
// propagated as an error from a function that has no error return.
func quietHoursFromConfig(cfg *config.Config) significance.QuietHours {
	if cfg.Insights.QuietHoursStart == "" || cfg.Insights.QuietHoursEnd == "" {
		return significance.QuietHours{}
	}
	start, errStart := config.ParseTimeOfDay(cfg.Insights.QuietHoursStart)
	end, errEnd := config.ParseTimeOfDay(cfg.Insights.QuietHoursEnd)
	if errStart != nil || errEnd != nil {
		return significance.QuietHours{}
	}
	loc, err := time.LoadLocation(cfg.General.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return significance.QuietHours{Enabled: true, Start: start, End: end, Location: loc}
}

// defaultMaxOutputTokens and defaultMaxPromptItems are not exposed as
// config fields: they bound API cost and prompt size, not user-facing
// behavior, and the daemon's other tunables already give enough
// control over analysis frequency and depth.
const (
	defaultMaxOutputTokens = 1024
	defaultMaxPromptItems  = 200
)
