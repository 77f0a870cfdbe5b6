// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

package jasperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesWrappedError(t *testing.T) {
	base := Wrap(LlmTimeout, "request timed out", errors.New("context deadline exceeded"))
	wrapped := fmt.Errorf("pipeline: %w", base)

	if !Is(wrapped, LlmTimeout) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}
	if Is(wrapped, LlmRejected) {
		t.Error("Is should not match a different code")
	}
}

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{New(LlmTransport, "connection reset"), true},
		{New(LlmTimeout, "deadline exceeded"), true},
		{New(LlmRateLimited, "429"), true},
		{NewLlmRejected(400, "bad request"), false},
		{New(ResponseMalformed, "missing urgency"), false},
		{errors.New("unrelated"), false},
	}
	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Errorf("Retryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{New(ConfigMissing, "no config file"), 2},
		{New(ConfigInvalid, "bad yaml"), 2},
		{New(IpcBusUnavailable, "socket bind failed"), 3},
		{New(StoreError, "open failed"), 4},
		{New(NotFound, "no such insight"), 1},
		{errors.New("unclassified"), 1},
	}
	for _, c := range cases {
		if got := ExitCode(c.err); got != c.want {
			t.Errorf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
