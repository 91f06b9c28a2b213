// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/azvaliev/gpterm/internal/config"
	"github.com/azvaliev/gpterm/internal/model"
)

const (
	// UserAgent is sent with every request.
	UserAgent = "gpterm/1.0"

	// maxErrorBody bounds how much of a failed response is read.
	maxErrorBody = 64 * 1024
)

// chatRequest is the body of a streaming completion request.
type chatRequest struct {
	Model    string              `json:"model"`
	Messages []model.WireMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Client talks to one chat completion endpoint with one key.
type Client struct {
	endpoint string
	model    string
	readSize int

	mu    sync.RWMutex
	token string

	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient builds a client from cfg. Streaming bodies have no overall
// deadline; cfg.TimeoutSecs bounds dialing and waiting for headers, and the
// request context bounds everything.
func NewClient(cfg config.APIConfig, token string) *Client {
	c := &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		token:    token,
		readSize: cfg.ReadBufferSize,
		http:     &http.Client{Transport: newTransport(cfg.Timeout())},
		log:      zerolog.Nop(),
	}
	if c.readSize <= 0 {
		c.readSize = config.DefaultReadBufferSize
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c
}

func newTransport(timeout time.Duration) *http.Transport {
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// WithLogger sets the request logger.
func (c *Client) WithLogger(logger zerolog.Logger) *Client {
	c.log = logger
	return c
}

// SetToken swaps the key used by later requests. Safe to call while a
// stream is open.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Model returns the model name sent with each request.
func (c *Client) Model() string {
	return c.model
}

// =============================================================================
// STREAMING REQUEST
// =============================================================================

// OpenStream posts messages and returns the response body as a Stream.
// The caller must Close the stream. Cancelling ctx aborts both the request
// and any pending Stream.Next.
func (c *Client) OpenStream(ctx context.Context, messages []model.WireMessage) (*Stream, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, &EncodeError{Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: waiting for request slot: %w", ErrRequestFailed, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("endpoint", c.endpoint).Msg("completion request failed")
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	c.log.Debug().
		Int("status", resp.StatusCode).
		Int("messages", len(messages)).
		Dur("latency", time.Since(start)).
		Msg("completion response")

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, handleErrorResponse(resp, errBody)
	}

	return newStream(resp.Body, c.readSize), nil
}

func (c *Client) setHeaders(req *http.Request) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", UserAgent)
}

// handleErrorResponse maps a non-200 response onto the error taxonomy.
func handleErrorResponse(resp *http.Response, body []byte) error {
	msg := errorMessage(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if msg == "" {
			return ErrUnauthorized
		}
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case http.StatusTooManyRequests:
		return &RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header, time.Now()),
			Message:    msg,
		}
	}

	apiErr := &APIError{Status: resp.StatusCode, Message: msg}
	var parsed apiErrorResponse
	if json.Unmarshal(body, &parsed) == nil {
		if code, ok := parsed.Error.Code.(string); ok {
			apiErr.Code = code
		} else if parsed.Error.Type != "" {
			apiErr.Code = parsed.Error.Type
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// errorMessage extracts error.message from an OpenAI-style error body, or
// falls back to the trimmed body text.
func errorMessage(body []byte) string {
	var parsed apiErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return model.Preview(strings.TrimSpace(string(body)), 200)
}
