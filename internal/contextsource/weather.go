// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package contextsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/heytcass/jasper/internal/contextmodel"
)

// WeatherSource fetches a short-range forecast and any active weather
// alerts for a fixed location. Grounded on original_source's
// WeatherContextSource (current conditions + forecast + alerts fetched
// from a single provider, cached briefly). Jasper only needs alerts
// and days with severe conditions — routine forecast days don't move
// the significance decision, so Fetch emits one item per forecast day
// flagged severe within the horizon, keyed by the day's alert ID when
// it has one and by its date otherwise. An alert on a day not flagged
// severe produces no item.
type WeatherSource struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	latitude  float64
	longitude float64
}

// NewWeatherSource creates a WeatherSource.
func NewWeatherSource(client *http.Client, baseURL, apiKey string, latitude, longitude float64) *WeatherSource {
	return &WeatherSource{client: client, baseURL: baseURL, apiKey: apiKey, latitude: latitude, longitude: longitude}
}

func (s *WeatherSource) ID() string { return "weather" }

type weatherForecastResponse struct {
	Days []weatherDay `json:"days"`
}

type weatherDay struct {
	Date        string `json:"date"`
	Condition   string `json:"condition"`
	Severe      bool   `json:"severe"`
	AlertID     string `json:"alert_id"`
	Description string `json:"description"`
}

func (s *WeatherSource) Fetch(ctx context.Context, horizonStart, horizonEnd time.Time) ([]contextmodel.Item, error) {
	url := fmt.Sprintf("%s/forecast?lat=%f&lon=%f&key=%s", s.baseURL, s.latitude, s.longitude, s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("contextsource: building weather request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contextsource: fetching weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("contextsource: weather API returned %s", resp.Status)
	}

	var parsed weatherForecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("contextsource: decoding weather response: %w", err)
	}

	var items []contextmodel.Item
	for _, day := range parsed.Days {
		if !day.Severe {
			continue
		}
		date, err := time.Parse("2006-01-02", day.Date)
		if err != nil || date.Before(horizonStart) || date.After(horizonEnd) {
			continue
		}
		items = append(items, contextmodel.Item{
			SourceID:  s.ID(),
			Kind:      contextmodel.KindWeather,
			StartsAt:  &date,
			Title:     day.Condition,
			Body:      day.Description,
			SourceUID: firstNonEmpty(day.AlertID, day.Date),
		})
	}
	return items, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
