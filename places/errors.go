// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ProviderError is a classified failure of a provider request.
type ProviderError struct {
	Provider string
	Type     ErrorType
	Message  string
	Err      error
}

// ErrorType classifies provider failures.
type ErrorType int

const (
	// ErrorTypeUnknown unclassified failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit the provider throttled us.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded quota exhausted or key rejected.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout the request did not complete in time.
	ErrorTypeTimeout
	// ErrorTypeNotFound resource not found.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest the provider rejected the parameters.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError transport level failure.
	ErrorTypeNetworkError
	// ErrorTypeMalformedResponse the payload could not be decoded or lacks geometry.
	ErrorTypeMalformedResponse
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:           "unknown",
	ErrorTypeRateLimit:         "rate_limit",
	ErrorTypeQuotaExceeded:     "quota_exceeded",
	ErrorTypeTimeout:           "timeout",
	ErrorTypeNotFound:          "not_found",
	ErrorTypeInvalidRequest:    "invalid_request",
	ErrorTypeNetworkError:      "network",
	ErrorTypeMalformedResponse: "malformed_response",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("ErrorType(%d)", int(t))
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Kind classifies err. A ProviderError carries its own type; anything else, such
// as a context deadline or a wrapped transport error, is classified by the Is*
// checks. It returns ErrorTypeUnknown when nothing applies.
func Kind(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	if t := typeOf(err); t != ErrorTypeUnknown {
		return t
	}

	switch {
	case IsTimeoutError(err):
		return ErrorTypeTimeout
	case IsRateLimitError(err):
		return ErrorTypeRateLimit
	case IsQuotaExceededError(err):
		return ErrorTypeQuotaExceeded
	}

	return ErrorTypeUnknown
}

func typeOf(err error) ErrorType {
	var pErr *ProviderError
	if errors.As(err, &pErr) {
		return pErr.Type
	}

	return ErrorTypeUnknown
}

// IsRateLimitError checks whether err is the provider throttling us.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	if typeOf(err) == ErrorTypeRateLimit {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsQuotaExceededError checks whether err is an exhausted quota.
func IsQuotaExceededError(err error) bool {
	if err == nil {
		return false
	}

	if typeOf(err) == ErrorTypeQuotaExceeded {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "over_query_limit") ||
		strings.Contains(errStr, "quota exceeded")
}

// IsTimeoutError checks whether err is a timeout.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if typeOf(err) == ErrorTypeTimeout || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// ClassifyHTTPError maps a non 200 HTTP status to a ProviderError.
func ClassifyHTTPError(provider string, statusCode int) *ProviderError {
	err := &ProviderError{Provider: provider}

	switch statusCode {
	case http.StatusTooManyRequests:
		err.Type, err.Message = ErrorTypeRateLimit, "rate limit reached"
	case http.StatusUnauthorized, http.StatusForbidden:
		err.Type, err.Message = ErrorTypeQuotaExceeded, "quota exceeded or access denied"
	case http.StatusBadRequest:
		err.Type, err.Message = ErrorTypeInvalidRequest, "invalid request"
	case http.StatusNotFound:
		err.Type, err.Message = ErrorTypeNotFound, "not found"
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		err.Type, err.Message = ErrorTypeTimeout, fmt.Sprintf("timed out (status %d)", statusCode)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusInternalServerError:
		err.Type, err.Message = ErrorTypeNetworkError, fmt.Sprintf("service unavailable (status %d)", statusCode)
	default:
		err.Type, err.Message = ErrorTypeUnknown, fmt.Sprintf("HTTP error %d", statusCode)
	}

	return err
}

// classifyTransportError wraps an error returned by http.Client.Do.
func classifyTransportError(provider string, err error) *ProviderError {
	if IsTimeoutError(err) {
		return &ProviderError{Provider: provider, Type: ErrorTypeTimeout, Message: "request timed out", Err: err}
	}

	if errors.Is(err, context.Canceled) {
		return &ProviderError{Provider: provider, Type: ErrorTypeUnknown, Message: "request cancelled", Err: err}
	}

	return &ProviderError{Provider: provider, Type: ErrorTypeNetworkError, Message: "request failed", Err: err}
}
