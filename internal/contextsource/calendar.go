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
	"github.com/heytcass/jasper/internal/secret"
)

// CalendarSource fetches events from a calendar HTTP API (e.g. Google
// Calendar's events.list endpoint) within a time window. The OAuth
// token exchange itself happens elsewhere; CalendarSource only holds
// an already-resolved bearer token.
type CalendarSource struct {
	client    *http.Client
	baseURL   string
	calendarID string
	token     *secret.Buffer
}

// NewCalendarSource creates a CalendarSource. token must remain valid
// for the lifetime of the source; callers own its Close.
func NewCalendarSource(client *http.Client, baseURL, calendarID string, token *secret.Buffer) *CalendarSource {
	return &CalendarSource{client: client, baseURL: baseURL, calendarID: calendarID, token: token}
}

func (s *CalendarSource) ID() string { return "calendar" }

type calendarEventsResponse struct {
	Items []calendarEvent `json:"items"`
}

type calendarEvent struct {
	ID          string          `json:"id"`
	Summary     string          `json:"summary"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	Organizer   calendarPerson  `json:"organizer"`
	Start       calendarEndpoint `json:"start"`
	End         calendarEndpoint `json:"end"`
}

type calendarPerson struct {
	Email string `json:"email"`
}

type calendarEndpoint struct {
	DateTime time.Time `json:"dateTime"`
	Date     string    `json:"date"`
}

func (s *CalendarSource) Fetch(ctx context.Context, horizonStart, horizonEnd time.Time) ([]contextmodel.Item, error) {
	url := fmt.Sprintf("%s/calendars/%s/events?timeMin=%s&timeMax=%s&singleEvents=true",
		s.baseURL, s.calendarID, horizonStart.Format(time.RFC3339), horizonEnd.Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("contextsource: building calendar request: %w", err)
	}
	if s.token != nil {
		req.Header.Set("Authorization", "Bearer "+string(s.token.Bytes()))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contextsource: fetching calendar events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("contextsource: calendar API returned %s", resp.Status)
	}

	var parsed calendarEventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("contextsource: decoding calendar response: %w", err)
	}

	items := make([]contextmodel.Item, 0, len(parsed.Items))
	for _, event := range parsed.Items {
		startsAt := endpointTime(event.Start)
		endsAt := endpointTime(event.End)
		items = append(items, contextmodel.Item{
			SourceID:  s.ID(),
			Kind:      contextmodel.KindEvent,
			StartsAt:  startsAt,
			EndsAt:    endsAt,
			Title:     event.Summary,
			Body:      event.Description,
			Location:  event.Location,
			Owner:     event.Organizer.Email,
			SourceUID: event.ID,
		})
	}
	return items, nil
}

func endpointTime(e calendarEndpoint) *time.Time {
	if !e.DateTime.IsZero() {
		t := e.DateTime
		return &t
	}
	if e.Date != "" {
		if parsed, err := time.Parse("2006-01-02", e.Date); err == nil {
			return &parsed
		}
	}
	return nil
}
