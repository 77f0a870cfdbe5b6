// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"testing"

	"github.com/heytcass/jasper/internal/config"
)

func testBaseConfig() *config.Config {
	cfg := config.Default()
	cfg.General.Timezone = "UTC"
	cfg.AI.APIKeyRef = "env:X"
	return cfg
}

func TestPipelineConfigFromConfigWiresQuietHoursDefaults(t *testing.T) {
	pc := PipelineConfigFromConfig(testBaseConfig())

	if !pc.Significance.QuietHours.Enabled {
		t.Fatal("expected quiet hours enabled from the default 22:00/08:00 config")
	}
}

func TestPipelineConfigFromConfigDisablesQuietHoursWhenEmpty(t *testing.T) {
	cfg := testBaseConfig()
	cfg.Insights.QuietHoursStart = ""
	cfg.Insights.QuietHoursEnd = ""

	pc := PipelineConfigFromConfig(cfg)
	if pc.Significance.QuietHours.Enabled {
		t.Fatal("expected quiet hours disabled when both config fields are empty")
	}
}

func TestPipelineConfigFromConfigWiresMaxPerDay(t *testing.T) {
	cfg := testBaseConfig()
	cfg.Insights.MaxPerDay = 3

	pc := PipelineConfigFromConfig(cfg)
	if pc.MaxPerDay != 3 {
		t.Errorf("MaxPerDay = %d, want 3", pc.MaxPerDay)
	}
}

func TestPipelineConfigFromConfigUsesConfiguredTimezone(t *testing.T) {
	cfg := testBaseConfig()
	cfg.General.Timezone = "America/New_York"

	pc := PipelineConfigFromConfig(cfg)
	loc := pc.Significance.QuietHours.Location
	if loc == nil || loc.String() != "America/New_York" {
		t.Errorf("QuietHours.Location = %v, want America/New_York", loc)
	}
}
