// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package llmclient wraps a remote LLM API behind the narrow contract
// the analysis pipeline needs: given a prompt bundle, return a
// structured (emoji, preview, body, urgency) tuple or a classified
// error.
package llmclient

// Request is a single non-streaming completion request. Jasper never
// needs multi-turn tool use or streaming output — one context bundle
// in, one structured insight out — so unlike a general-purpose
// provider abstraction this carries only what a single summarization
// call needs.
type Request struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Response is the parsed result of a completion. Emoji, Preview, Body,
// and Urgency are extracted from the model's structured output by the
// concrete provider.
type Response struct {
	Emoji        string
	Preview      string
	Body         string
	Urgency      int
	Model        string
	InputTokens  int64
	OutputTokens int64
}
