// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package llmclient

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/heytcass/jasper/internal/jasperr"
	"github.com/heytcass/jasper/lib/clock"
)

// RetryingProvider wraps a Provider with bounded exponential-backoff
// retry on transient errors: retry on transport/5xx errors and on
// rate-limit (429) responses, do not retry on other 4xx.
//
// limiter clamps the outbound request rate independent of the backoff
// schedule: a burst of ForceRefresh calls or a pathological retry loop
// still can't exceed one Complete call per second against the
// provider. Every attempt reserves against it using the injected
// clock's notion of "now" so the clamp stays deterministic under a
// fake clock in tests. It adds no wait between the retries of a single
// call, since the exponential backoff already spaces those at or beyond
// the limiter's own interval; it does delay a call that starts within a
// second of the previous one.
type RetryingProvider struct {
	inner       Provider
	clock       clock.Clock
	maxAttempts int
	limiter     *rate.Limiter
}

// NewRetryingProvider wraps inner. maxAttempts includes the first
// attempt; 3 means up to 2 retries.
func NewRetryingProvider(inner Provider, c clock.Clock, maxAttempts int) *RetryingProvider {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryingProvider{
		inner:       inner,
		clock:       c,
		maxAttempts: maxAttempts,
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (p *RetryingProvider) Complete(ctx context.Context, request Request) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return nil, jasperr.Wrap(jasperr.LlmTimeout, "context cancelled during backoff", ctx.Err())
			case <-p.clock.After(backoff):
			}
		}

		if err := p.awaitRateLimit(ctx); err != nil {
			return nil, err
		}

		response, err := p.inner.Complete(ctx, request)
		if err == nil {
			return response, nil
		}
		lastErr = classify(err)

		if !jasperr.Retryable(lastErr) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// awaitRateLimit reserves a slot against the limiter and blocks only
// if the reservation isn't immediately usable. Reserving (rather than
// Wait, which reads the real wall clock internally) keeps the whole
// clamp expressed in terms of the injected clock's now.
func (p *RetryingProvider) awaitRateLimit(ctx context.Context) error {
	now := p.clock.Now()
	reservation := p.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return jasperr.New(jasperr.LlmTransport, "llm request rate limit misconfigured")
	}
	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		reservation.Cancel()
		return jasperr.Wrap(jasperr.LlmTimeout, "context cancelled waiting for rate limiter", ctx.Err())
	case <-p.clock.After(delay):
		return nil
	}
}

// classify maps a raw ProviderError (or context error) to the
// jasperr taxonomy so the pipeline and callers can branch on Code
// rather than provider-specific types.
func classify(err error) error {
	if _, ok := err.(*jasperr.Error); ok {
		return err
	}

	providerErr, ok := err.(*ProviderError)
	if !ok {
		return jasperr.Wrap(jasperr.LlmTransport, "llm request failed", err)
	}

	switch {
	case providerErr.IsRateLimited():
		return jasperr.Wrap(jasperr.LlmRateLimited, "llm rate limited", providerErr)
	case providerErr.IsServerError():
		return jasperr.Wrap(jasperr.LlmTransport, "llm server error", providerErr)
	default:
		return jasperr.NewLlmRejected(providerErr.StatusCode, providerErr.Message)
	}
}
