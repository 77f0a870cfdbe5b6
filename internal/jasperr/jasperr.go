// Copyright 2026 The Jasper Authors
// SPDX-License-Identifier: Apache-2.0

// Package jasperr implements the daemon's error taxonomy: a small set
// of named error codes, a typed error carrying one, and helpers for
// classifying an error and mapping it to a process exit code at
// startup.
package jasperr

import "fmt"

// Code identifies one of the named failure classes.
type Code string

const (
	ConfigMissing    Code = "CONFIG_MISSING"
	ConfigInvalid    Code = "CONFIG_INVALID"
	ConfigRejected   Code = "CONFIG_REJECTED"
	SourceUnavailable Code = "SOURCE_UNAVAILABLE"
	SourceTimeout    Code = "SOURCE_TIMEOUT"
	AggregationFailed Code = "AGGREGATION_FAILED"
	LlmTransport     Code = "LLM_TRANSPORT"
	LlmTimeout       Code = "LLM_TIMEOUT"
	LlmRateLimited   Code = "LLM_RATE_LIMITED"
	LlmRejected      Code = "LLM_REJECTED"
	ResponseMalformed Code = "RESPONSE_MALFORMED"
	StoreError       Code = "STORE_ERROR"
	IpcBusUnavailable Code = "IPC_BUS_UNAVAILABLE"
	FrontendUnknown  Code = "FRONTEND_UNKNOWN"
	NotFound         Code = "NOT_FOUND"
)

// Error is a typed error carrying a [Code], a human-readable message,
// an optional status (for LlmRejected, the HTTP status code), and an
// optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Status  int
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether err is a *Error with the given code.
func Is(err error, code Code) bool {
	var typed *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			typed = e
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return typed != nil && typed.Code == code
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NewLlmRejected constructs a non-retryable 4xx LLM error.
func NewLlmRejected(status int, message string) *Error {
	return &Error{Code: LlmRejected, Status: status, Message: message}
}

// Retryable reports whether err represents a transient failure the
// analysis pipeline should retry within its budget: LlmTransport,
// LlmTimeout, and LlmRateLimited are retryable; LlmRejected and
// ResponseMalformed are not.
func Retryable(err error) bool {
	return Is(err, LlmTransport) || Is(err, LlmTimeout) || Is(err, LlmRateLimited)
}

// exitCodes maps startup-fatal error classes to a process exit code.
// Order matters only for readability; lookups are by map key.
var exitCodes = map[Code]int{
	ConfigMissing:     2,
	ConfigInvalid:     2,
	IpcBusUnavailable: 3,
	StoreError:        4,
}

// ExitCode returns the process exit code for a startup-fatal error.
// Errors with no specific class map to 1. A nil error maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var typed *Error
	if e, ok := err.(*Error); ok {
		typed = e
	}
	if typed == nil {
		return 1
	}
	if code, ok := exitCodes[typed.Code]; ok {
		return code
	}
	return 1
}
