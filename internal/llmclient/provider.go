// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Provider is the interface for LLM API backends. Concrete providers
// translate between Request/Response and each vendor's wire format.
type Provider interface {
	Complete(ctx context.Context, request Request) (*Response, error)
}

// ProviderError is returned when the LLM API responds with an error.
type ProviderError struct {
	StatusCode int
	Type       string
	Message    string
}

func (err *ProviderError) Error() string {
	if err.Type != "" {
		return fmt.Sprintf("llmclient: HTTP %d: %s: %s", err.StatusCode, err.Type, err.Message)
	}
	return fmt.Sprintf("llmclient: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsRateLimited reports whether the error is a rate-limit response.
func (err *ProviderError) IsRateLimited() bool { return err.StatusCode == 429 }

// IsServerError reports whether the error is a 5xx server error.
func (err *ProviderError) IsServerError() bool { return err.StatusCode >= 500 }

// doProviderRequest marshals wireRequest as JSON, POSTs it to endpoint,
// and returns the HTTP response. Returns a ProviderError for non-200
// status codes; on error the body is already closed.
func doProviderRequest(ctx context.Context, httpClient *http.Client, endpoint string, wireRequest any, apiKey string) (*http.Response, error) {
	body, err := json.Marshal(wireRequest)
	if err != nil {
		return nil, fmt.Errorf("llmclient: marshaling request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llmclient: creating request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Authorization", "Bearer "+apiKey)

	httpResponse, err := httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("llmclient: sending request: %w", err)
	}

	if httpResponse.StatusCode != http.StatusOK {
		defer httpResponse.Body.Close()
		return nil, readProviderError(httpResponse)
	}
	return httpResponse, nil
}

// readProviderError parses an error response body in the common
// provider error format: {"error":{"type":"...","message":"..."}}.
func readProviderError(httpResponse *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 4096))

	var wireError struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Error.Message != "" {
		return &ProviderError{StatusCode: httpResponse.StatusCode, Type: wireError.Error.Type, Message: wireError.Error.Message}
	}
	return &ProviderError{StatusCode: httpResponse.StatusCode, Message: string(body)}
}
