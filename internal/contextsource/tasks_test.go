// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package contextsource_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/heytcass/jasper/internal/contextsource"
)

func TestTaskSourceFetchWithNilTokenDoesNotPanic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("Authorization header = %q, want empty with a nil token", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tasks":[]}`))
	}))
	defer server.Close()

	src := contextsource.NewTaskSource(server.Client(), server.URL, nil)

	now := time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC)
	if _, err := src.Fetch(t.Context(), now, now.AddDate(0, 0, 7)); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}
