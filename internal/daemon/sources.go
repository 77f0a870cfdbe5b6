// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"fmt"
	"net/http"
	"time"

	"github.com/heytcass/jasper/internal/config"
	"github.com/heytcass/jasper/internal/contextsource"
	"github.com/heytcass/jasper/internal/secret"
)

// BuildAggregator constructs a fresh Aggregator from the enabled
// sources in cfg. Called at startup and again after any config reload
// that might have changed source enablement or credentials.
func BuildAggregator(cfg config.SourcesConfig, resolver *secret.Resolver, httpClient *http.Client) (*contextsource.Aggregator, error) {
	var sources []contextsource.Source

	if cfg.Calendar.Enabled {
		token, err := resolveOptional(resolver, cfg.Calendar.TokenRef)
		if err != nil {
			return nil, fmt.Errorf("resolving calendar token: %w", err)
		}
		sources = append(sources, contextsource.NewCalendarSource(httpClient, cfg.Calendar.BaseURL, cfg.Calendar.CalendarID, token))
	}

	if cfg.Tasks.Enabled {
		token, err := resolveOptional(resolver, cfg.Tasks.TokenRef)
		if err != nil {
			return nil, fmt.Errorf("resolving task token: %w", err)
		}
		sources = append(sources, contextsource.NewTaskSource(httpClient, cfg.Tasks.BaseURL, token))
	}

	if cfg.Notes.Enabled {
		sources = append(sources, contextsource.NewNoteSource(cfg.Notes.VaultPath, cfg.Notes.IgnoredFolders))
	}

	if cfg.Weather.Enabled {
		apiKey, err := resolveOptional(resolver, cfg.Weather.APIKeyRef)
		if err != nil {
			return nil, fmt.Errorf("resolving weather api key: %w", err)
		}
		sources = append(sources, contextsource.NewWeatherSource(httpClient, cfg.Weather.BaseURL, apiKeyString(apiKey), cfg.Weather.Latitude, cfg.Weather.Longitude))
	}

	timeout := time.Duration(cfg.SourceTimeoutSeconds) * time.Second
	return contextsource.New(sources, timeout), nil
}

// resolveOptional resolves ref through resolver, returning a nil
// Buffer when ref is empty rather than treating it as an error — not
// every source requires credentials (a self-hosted calendar behind a
// reverse proxy, for instance).
func resolveOptional(resolver *secret.Resolver, ref string) (*secret.Buffer, error) {
	if ref == "" {
		return nil, nil
	}
	return resolver.Resolve(ref)
}

// apiKeyString extracts a resolved secret as a string, or "" when buf
// is nil. WeatherSource takes its key as a plain string rather than a
// Buffer since the underlying HTTP client places it directly in a
// query parameter.
func apiKeyString(buf *secret.Buffer) string {
	if buf == nil {
		return ""
	}
	return buf.String()
}
