// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/heytcass/jasper/internal/jasperr"
)

// Anthropic implements Provider for the Anthropic Messages API. The
// system prompt instructs the model to reply with a single JSON object
// matching insightPayload; Jasper has no use for free-form prose
// responses.
type Anthropic struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewAnthropic creates an Anthropic provider. baseURL defaults to
// Anthropic's public API when empty.
func NewAnthropic(httpClient *http.Client, baseURL, apiKey string) *Anthropic {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return &Anthropic{httpClient: httpClient, baseURL: baseURL, apiKey: apiKey}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string                  `json:"model"`
	Content []anthropicContentBlock `json:"content"`
	Usage   anthropicUsage          `json:"usage"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// insightPayload is the structured shape the system prompt asks the
// model to emit as its entire reply.
type insightPayload struct {
	Emoji   string `json:"emoji"`
	Preview string `json:"preview"`
	Body    string `json:"body"`
	Urgency int    `json:"urgency"`
}

func (provider *Anthropic) Complete(ctx context.Context, request Request) (*Response, error) {
	wireRequest := anthropicRequest{
		Model:       request.Model,
		MaxTokens:   request.MaxTokens,
		Temperature: request.Temperature,
		System:      request.SystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: request.UserPrompt},
		},
	}

	httpResponse, err := doProviderRequest(ctx, provider.httpClient, provider.baseURL+"/v1/messages", wireRequest, provider.apiKey)
	if err != nil {
		return nil, err
	}
	defer httpResponse.Body.Close()

	var wireResp anthropicResponse
	if err := json.NewDecoder(httpResponse.Body).Decode(&wireResp); err != nil {
		return nil, fmt.Errorf("llmclient: decoding response: %w", err)
	}

	var text string
	for _, block := range wireResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	var payload insightPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, jasperr.Wrap(jasperr.ResponseMalformed, "model reply is not a valid insight payload", err)
	}

	return &Response{
		Emoji:        payload.Emoji,
		Preview:      payload.Preview,
		Body:         payload.Body,
		Urgency:      payload.Urgency,
		Model:        wireResp.Model,
		InputTokens:  wireResp.Usage.InputTokens,
		OutputTokens: wireResp.Usage.OutputTokens,
	}, nil
}
