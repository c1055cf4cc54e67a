// Copyright 2025 The MapAudit Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
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
			assert.Equal(t, tt.want, checkFunc(tt.err))
		})
	}
}

func TestIsRateLimit(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"nil", nil, false},
		{"typed", &Error{Type: ErrorTypeRateLimit, Message: "slow down"}, true},
		{"wrapped", fmt.Errorf("geocoding: %w", &Error{Type: ErrorTypeRateLimit}), true},
		{"message", errors.New("too many requests"), true},
		{"status in message", errors.New("server returned 429"), true},
		{"other type", &Error{Type: ErrorTypeNotFound, Message: "rate limit"}, false},
		{"unrelated", errors.New("boom"), false},
	}, IsRateLimit)
}

func TestIsQuotaExceeded(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"nil", nil, false},
		{"typed", &Error{Type: ErrorTypeQuotaExceeded}, true},
		{"message", errors.New("OVER_QUERY_LIMIT"), true},
		{"other type", &Error{Type: ErrorTypeRateLimit}, false},
		{"unrelated", errors.New("boom"), false},
	}, IsQuotaExceeded)
}

func TestIsTimeout(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"nil", nil, false},
		{"typed", &Error{Type: ErrorTypeTimeout}, true},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"message", errors.New("i/o timeout"), true},
		{"unrelated", errors.New("boom"), false},
	}, IsTimeout)
}

func TestIsNotFound(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"nil", nil, false},
		{"typed", &Error{Type: ErrorTypeNotFound}, true},
		{"untyped", errors.New("not found"), false},
	}, IsNotFound)
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusForbidden, ErrorTypeQuotaExceeded},
		{http.StatusBadRequest, ErrorTypeInvalidRequest},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusBadGateway, ErrorTypeNetworkError},
		{http.StatusServiceUnavailable, ErrorTypeNetworkError},
		{http.StatusGatewayTimeout, ErrorTypeNetworkError},
		{http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyHTTPError(tt.status).Type)
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	assert.Nil(t, classifyStatus("OK", ""))

	err := classifyStatus("REQUEST_DENIED", "The provided API key is invalid.")
	assert.Equal(t, ErrorTypeQuotaExceeded, err.Type)
	assert.Equal(t, "REQUEST_DENIED: The provided API key is invalid.", err.Error())

	assert.Equal(t, ErrorTypeNotFound, classifyStatus("ZERO_RESULTS", "").Type)
	assert.Equal(t, ErrorTypeInvalidRequest, classifyStatus("INVALID_REQUEST", "").Type)
	assert.Equal(t, ErrorTypeUnknown, classifyStatus("UNKNOWN_ERROR", "").Type)
}

func TestErrorUnwrap(t *testing.T) {
	err := &Error{Type: ErrorTypeTimeout, Message: "waiting", Err: context.Canceled}

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "waiting: context canceled", err.Error())
	assert.Equal(t, "timeout", err.Type.String())
	assert.Equal(t, "ErrorType(42)", ErrorType(42).String())
}
