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

// TaskSource fetches open tasks from a task-management HTTP API.
// Grounded on original_source's TaskContext shape
// (tasks/overdue_count/upcoming_count), simplified here to the items
// the significance engine actually needs: each open task whose due
// date falls within the horizon, or that has no due date, becomes one
// contextmodel.Item.
type TaskSource struct {
	client  *http.Client
	baseURL string
	token   *secret.Buffer
}

// NewTaskSource creates a TaskSource.
func NewTaskSource(client *http.Client, baseURL string, token *secret.Buffer) *TaskSource {
	return &TaskSource{client: client, baseURL: baseURL, token: token}
}

func (s *TaskSource) ID() string { return "tasks" }

type taskListResponse struct {
	Tasks []taskItem `json:"tasks"`
}

type taskItem struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Notes   string     `json:"notes"`
	DueAt   *time.Time `json:"due_at"`
	Project string     `json:"project"`
	Done    bool       `json:"done"`
}

func (s *TaskSource) Fetch(ctx context.Context, horizonStart, horizonEnd time.Time) ([]contextmodel.Item, error) {
	url := fmt.Sprintf("%s/tasks?open=true", s.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("contextsource: building tasks request: %w", err)
	}
	if s.token != nil {
		req.Header.Set("Authorization", "Bearer "+string(s.token.Bytes()))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contextsource: fetching tasks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("contextsource: tasks API returned %s", resp.Status)
	}

	var parsed taskListResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("contextsource: decoding tasks response: %w", err)
	}

	items := make([]contextmodel.Item, 0, len(parsed.Tasks))
	for _, task := range parsed.Tasks {
		if task.Done {
			continue
		}
		if task.DueAt != nil && (task.DueAt.Before(horizonStart) || task.DueAt.After(horizonEnd)) {
			continue
		}
		items = append(items, contextmodel.Item{
			SourceID:  s.ID(),
			Kind:      contextmodel.KindTask,
			StartsAt:  task.DueAt,
			Title:     task.Title,
			Body:      task.Notes,
			Location:  task.Project,
			SourceUID: task.ID,
		})
	}
	return items, nil
}
