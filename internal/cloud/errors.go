// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var (
	// ErrUnauthorized indicates the API key was missing, invalid or revoked.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the account is out of quota or sending too fast.
	ErrRateLimited = errors.New("rate limited")

	// ErrRequestFailed covers network faults and unexpected service responses.
	ErrRequestFailed = errors.New("request failed")
)

// APIError is a non-success response other than 401 and 429.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Message)
}

// Is makes every APIError match ErrRequestFailed.
func (e *APIError) Is(target error) bool {
	return target == ErrRequestFailed
}

// RateLimitError is an HTTP 429 with the server's retry hint, if any.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	msg := "rate limited"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %v)", e.RetryAfter)
	}
	return msg
}

// Is allows RateLimitError to be compared with ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// EncodeError means the request body could not be serialized. No request
// was sent.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode request: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// ErrorKind groups transport failures by how the user should react.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindUnauthorized
	KindRateLimited
	KindEncode
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindEncode:
		return "encode"
	default:
		return "other"
	}
}

// Kind classifies err. Anything unrecognized is KindOther.
func Kind(err error) ErrorKind {
	var encErr *EncodeError
	switch {
	case errors.As(err, &encErr):
		return KindEncode
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	default:
		return KindOther
	}
}

// parseRetryAfter reads a Retry-After header in either seconds or HTTP-date
// form. Unparseable or past values yield 0.
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
