// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jasper.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
ai:
  api_key_ref: env:ANTHROPIC_API_KEY
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.General.PlanningHorizonDays != 7 {
		t.Errorf("PlanningHorizonDays = %d, want default 7", cfg.General.PlanningHorizonDays)
	}
	if cfg.Insights.HighUrgencyDays != 2 {
		t.Errorf("HighUrgencyDays = %d, want default 2", cfg.Insights.HighUrgencyDays)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
general:
  planning_horizon_days: 14
ai:
  provider: openai
  model: gpt-5
  api_key_ref: env:OPENAI_API_KEY
insights:
  high_urgency_days: 5
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.General.PlanningHorizonDays != 14 {
		t.Errorf("PlanningHorizonDays = %d, want 14", cfg.General.PlanningHorizonDays)
	}
	if cfg.AI.Provider != "openai" || cfg.AI.Model != "gpt-5" {
		t.Errorf("AI = %+v, want provider openai model gpt-5", cfg.AI)
	}
	if cfg.Insights.HighUrgencyDays != 5 {
		t.Errorf("HighUrgencyDays = %d, want 5", cfg.Insights.HighUrgencyDays)
	}
}

func TestLoadFileAppliesQuietHoursDefaults(t *testing.T) {
	path := writeConfig(t, `
ai:
  api_key_ref: env:ANTHROPIC_API_KEY
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Insights.QuietHoursStart != "22:00" || cfg.Insights.QuietHoursEnd != "08:00" {
		t.Errorf("QuietHours = %q..%q, want default 22:00..08:00", cfg.Insights.QuietHoursStart, cfg.Insights.QuietHoursEnd)
	}
}

func TestLoadFileRejectsMalformedQuietHours(t *testing.T) {
	path := writeConfig(t, `
ai:
  api_key_ref: env:ANTHROPIC_API_KEY
insights:
  quiet_hours_start: "10pm"
  quiet_hours_end: "08:00"
`)

	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile: expected error for malformed quiet_hours_start")
	}
}

func TestLoadFileRejectsOneSidedQuietHours(t *testing.T) {
	path := writeConfig(t, `
ai:
  api_key_ref: env:ANTHROPIC_API_KEY
insights:
  quiet_hours_start: "22:00"
  quiet_hours_end: ""
`)

	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile: expected error when only one of quiet_hours_start/end is set")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	minutes, err := ParseTimeOfDay("08:30")
	if err != nil {
		t.Fatalf("ParseTimeOfDay: %v", err)
	}
	if minutes != 8*60+30 {
		t.Errorf("minutes = %d, want %d", minutes, 8*60+30)
	}

	if _, err := ParseTimeOfDay("25:00"); err == nil {
		t.Fatal("ParseTimeOfDay: expected error for out-of-range hour")
	}
}

func TestLoadFileMissingAPIKeyRefFails(t *testing.T) {
	path := writeConfig(t, `general:
  planning_horizon_days: 7
`)

	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("LoadFile: expected error for missing ai.api_key_ref")
	}
}

func TestLoadFileInvalidTimezoneFails(t *testing.T) {
	path := writeConfig(t, `
general:
  timezone: Not/AZone
ai:
  api_key_ref: env:X
`)

	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("LoadFile: expected error for invalid timezone")
	}
}

func TestLoadFileNonexistentPath(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("LoadFile: expected error for nonexistent path")
	}
}

func TestLoadMissingEnvVar(t *testing.T) {
	t.Setenv("JASPER_CONFIG", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load: expected error when JASPER_CONFIG is unset")
	}
}
