// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package llmclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/heytcass/jasper/internal/jasperr"
	"github.com/heytcass/jasper/lib/clock"
)

type stubProvider struct {
	calls     int
	responses []*Response
	errs      []error
}

func (p *stubProvider) Complete(ctx context.Context, request Request) (*Response, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i < len(p.responses) {
		return p.responses[i], nil
	}
	return nil, errors.New("stubProvider: no more scripted results")
}

func TestRetryingProviderSucceedsAfterTransientErrors(t *testing.T) {
	stub := &stubProvider{
		errs:      []error{&ProviderError{StatusCode: 503, Message: "overloaded"}, &ProviderError{StatusCode: 429, Message: "rate limited"}},
		responses: []*Response{nil, nil, {Emoji: "☕", Preview: "ok"}},
	}
	fake := clock.Fake(time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC))
	provider := NewRetryingProvider(stub, fake, 3)

	resultCh := make(chan *Response, 1)
	errCh := make(chan error, 1)
	go func() {
		resp, err := provider.Complete(context.Background(), Request{Model: "test"})
		resultCh <- resp
		errCh <- err
	}()

	fake.WaitForTimers(1)
	fake.Advance(1 * time.Second)
	fake.WaitForTimers(1)
	fake.Advance(2 * time.Second)

	resp := <-resultCh
	err := <-errCh
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp == nil || resp.Emoji != "☕" {
		t.Fatalf("Complete returned unexpected response: %+v", resp)
	}
	if stub.calls != 3 {
		t.Errorf("calls = %d, want 3", stub.calls)
	}
}

func TestRetryingProviderDoesNotRetry4xx(t *testing.T) {
	stub := &stubProvider{
		errs: []error{&ProviderError{StatusCode: 400, Message: "bad request"}},
	}
	fake := clock.Fake(time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC))
	provider := NewRetryingProvider(stub, fake, 3)

	_, err := provider.Complete(context.Background(), Request{Model: "test"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !jasperr.Is(err, jasperr.LlmRejected) {
		t.Errorf("expected LlmRejected, got %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", stub.calls)
	}
}

func TestRetryingProviderExhaustsAttempts(t *testing.T) {
	stub := &stubProvider{
		errs: []error{
			&ProviderError{StatusCode: 500, Message: "1"},
			&ProviderError{StatusCode: 500, Message: "2"},
			&ProviderError{StatusCode: 500, Message: "3"},
		},
	}
	fake := clock.Fake(time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC))
	provider := NewRetryingProvider(stub, fake, 3)

	errCh := make(chan error, 1)
	go func() {
		_, err := provider.Complete(context.Background(), Request{Model: "test"})
		errCh <- err
	}()

	fake.WaitForTimers(1)
	fake.Advance(1 * time.Second)
	fake.WaitForTimers(1)
	fake.Advance(2 * time.Second)

	err := <-errCh
	if !jasperr.Is(err, jasperr.LlmTransport) {
		t.Errorf("expected LlmTransport after exhausting retries, got %v", err)
	}
	if stub.calls != 3 {
		t.Errorf("calls = %d, want 3", stub.calls)
	}
}

func TestRetryingProviderClampsBackToBackRequests(t *testing.T) {
	stub := &stubProvider{
		responses: []*Response{{Emoji: "☕", Preview: "one"}, {Emoji: "🌙", Preview: "two"}},
	}
	fake := clock.Fake(time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC))
	provider := NewRetryingProvider(stub, fake, 3)

	resp, err := provider.Complete(context.Background(), Request{Model: "test"})
	if err != nil || resp.Preview != "one" {
		t.Fatalf("first Complete = %+v, %v", resp, err)
	}

	// A second call issued at the same instant has no backoff of its
	// own to space it out, so the limiter's clamp is what stands
	// between it and the inner provider.
	resultCh := make(chan *Response, 1)
	errCh := make(chan error, 1)
	go func() {
		resp, err := provider.Complete(context.Background(), Request{Model: "test"})
		resultCh <- resp
		errCh <- err
	}()

	fake.WaitForTimers(1)
	if stub.calls != 1 {
		t.Fatalf("stub.calls = %d before the clamp released, want 1", stub.calls)
	}
	fake.Advance(1 * time.Second)

	resp = <-resultCh
	if err := <-errCh; err != nil || resp.Preview != "two" {
		t.Fatalf("second Complete = %+v, %v", resp, err)
	}
}

func TestRetryingProviderStopsOnContextCancellation(t *testing.T) {
	stub := &stubProvider{
		errs: []error{&ProviderError{StatusCode: 500, Message: "1"}},
	}
	fake := clock.Fake(time.Date(2026, 8, 6, 9, 0, 0, 0, time.UTC))
	provider := NewRetryingProvider(stub, fake, 3)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := provider.Complete(ctx, Request{Model: "test"})
		errCh <- err
	}()

	fake.WaitForTimers(1)
	cancel()

	err := <-errCh
	if !jasperr.Is(err, jasperr.LlmTimeout) {
		t.Errorf("expected LlmTimeout on cancellation, got %v", err)
	}
}
