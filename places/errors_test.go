// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

type errorCheckTestCase struct {
	name string
	err  error
	want bool
}

func runErrorCheckTest(t *testing.T, tests []errorCheckTestCase, checkFunc func(error) bool) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkFunc(tt.err); got != tt.want {
				t.Errorf("checkFunc() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRateLimitError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"rate limit error type", &ProviderError{Type: ErrorTypeRateLimit, Message: "throttled"}, true},
		{"wrapped rate limit", fmt.Errorf("point 3: %w", &ProviderError{Type: ErrorTypeRateLimit}), true},
		{"error message contains too many requests", errors.New("too many requests"), true},
		{"error message contains 429", errors.New("here returned status 429"), true},
		{"other error type", &ProviderError{Type: ErrorTypeNotFound, Message: "not found"}, false},
		{"unrelated error", errors.New("some other error"), false},
		{"nil", nil, false},
	}, IsRateLimitError)
}

func TestIsQuotaExceededError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"quota error type", &ProviderError{Type: ErrorTypeQuotaExceeded, Message: "denied"}, true},
		{"google status", errors.New("status OVER_QUERY_LIMIT"), true},
		{"other error type", &ProviderError{Type: ErrorTypeTimeout}, false},
		{"nil", nil, false},
	}, IsQuotaExceededError)
}

func TestIsTimeoutError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"timeout error type", &ProviderError{Type: ErrorTypeTimeout}, true},
		{"deadline exceeded", fmt.Errorf("query: %w", context.DeadlineExceeded), true},
		{"message", errors.New("i/o timeout"), true},
		{"cancelled", context.Canceled, false},
		{"nil", nil, false},
	}, IsTimeoutError)
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusUnauthorized, ErrorTypeQuotaExceeded},
		{http.StatusForbidden, ErrorTypeQuotaExceeded},
		{http.StatusBadRequest, ErrorTypeInvalidRequest},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusGatewayTimeout, ErrorTypeTimeout},
		{http.StatusServiceUnavailable, ErrorTypeNetworkError},
		{http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := ClassifyHTTPError(ProviderHere, tt.status)
			if err.Type != tt.want {
				t.Errorf("ClassifyHTTPError(%d).Type = %v, want %v", tt.status, err.Type, tt.want)
			}

			if err.Provider != ProviderHere {
				t.Errorf("Provider = %q, want %q", err.Provider, ProviderHere)
			}
		})
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("lookup: %w", classifyTransportError(ProviderGoogle, context.DeadlineExceeded))

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the cause to be preserved: %v", err)
	}

	if Kind(err) != ErrorTypeTimeout {
		t.Errorf("Kind() = %v, want timeout", Kind(err))
	}

	if got := ErrorTypeRateLimit.String(); got != "rate_limit" {
		t.Errorf("String() = %q", got)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"provider error", &ProviderError{Type: ErrorTypeNotFound}, ErrorTypeNotFound},
		{"wrapped provider error", fmt.Errorf("here nearby search: %w", &ProviderError{Type: ErrorTypeRateLimit}), ErrorTypeRateLimit},
		{"bare deadline", fmt.Errorf("google nearby search: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{"throttled message", errors.New("429 too many requests"), ErrorTypeRateLimit},
		{"quota message", errors.New("OVER_QUERY_LIMIT"), ErrorTypeQuotaExceeded},
		{"untyped provider error with timeout cause", &ProviderError{Message: "failed", Err: context.DeadlineExceeded}, ErrorTypeTimeout},
		{"cancelled", context.Canceled, ErrorTypeUnknown},
		{"anything else", errors.New("boom"), ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
