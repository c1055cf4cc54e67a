// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a geocoding failure classified by cause.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType classifies geocoding failures.
type ErrorType int

const (
	// ErrorTypeUnknown is an unclassified failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit means the provider asked us to slow down.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded means the daily quota is gone or the key was denied.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout is a connection or deadline timeout.
	ErrorTypeTimeout
	// ErrorTypeNotFound means the address didn't resolve.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest means the request was malformed.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError is a transient transport or server failure.
	ErrorTypeNetworkError
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:        "unknown",
	ErrorTypeRateLimit:      "rate_limit",
	ErrorTypeQuotaExceeded:  "quota_exceeded",
	ErrorTypeTimeout:        "timeout",
	ErrorTypeNotFound:       "not_found",
	ErrorTypeInvalidRequest: "invalid_request",
	ErrorTypeNetworkError:   "network_error",
}

func (t ErrorType) String() string {
	if s, ok := errorTypeNames[t]; ok {
		return s
	}

	return fmt.Sprintf("ErrorType(%d)", int(t))
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func typeOf(err error) (ErrorType, bool) {
	var geoErr *Error
	if errors.As(err, &geoErr) {
		return geoErr.Type, true
	}

	return ErrorTypeUnknown, false
}

// IsRateLimit reports whether err is a rate limit response.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	if t, ok := typeOf(err); ok {
		return t == ErrorTypeRateLimit
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsQuotaExceeded reports whether err means no more requests will succeed
// today.
func IsQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}

	if t, ok := typeOf(err); ok {
		return t == ErrorTypeQuotaExceeded
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "over_query_limit") ||
		strings.Contains(errStr, "quota exceeded")
}

// IsTimeout reports whether err is a timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if t, ok := typeOf(err); ok {
		return t == ErrorTypeTimeout
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// IsNotFound reports whether the address simply didn't resolve.
func IsNotFound(err error) bool {
	t, ok := typeOf(err)

	return ok && t == ErrorTypeNotFound
}

// ClassifyHTTPError maps an HTTP status to a geocoding error.
func ClassifyHTTPError(statusCode int) *Error {
	switch statusCode {
	case http.StatusTooManyRequests:
		return &Error{Type: ErrorTypeRateLimit, Message: "rate limit reached"}
	case http.StatusForbidden:
		return &Error{Type: ErrorTypeQuotaExceeded, Message: "quota exceeded or access denied"}
	case http.StatusBadRequest:
		return &Error{Type: ErrorTypeInvalidRequest, Message: "invalid request"}
	case http.StatusNotFound:
		return &Error{Type: ErrorTypeNotFound, Message: "location not found"}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &Error{
			Type:    ErrorTypeNetworkError,
			Message: fmt.Sprintf("service unavailable (status %d)", statusCode),
		}
	default:
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("HTTP error %d", statusCode),
		}
	}
}

// classifyStatus maps a Geocoding API status field to an error, nil for OK.
func classifyStatus(status, message string) *Error {
	msg := status
	if message != "" {
		msg += ": " + message
	}

	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS":
		return &Error{Type: ErrorTypeNotFound, Message: msg}
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT", "REQUEST_DENIED":
		return &Error{Type: ErrorTypeQuotaExceeded, Message: msg}
	case "INVALID_REQUEST":
		return &Error{Type: ErrorTypeInvalidRequest, Message: msg}
	default:
		return &Error{Type: ErrorTypeUnknown, Message: msg}
	}
}
