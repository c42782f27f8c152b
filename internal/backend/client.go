package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gateway/internal/config"
	"gateway/internal/constants"
	"gateway/pkg/circuitbreaker"
	apperrors "gateway/pkg/errors"
	"gateway/pkg/tracing"
)

const maxResponseBytes = 10 << 20

// Response is a complete backend reply. Non-2xx statuses are not errors.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= constants.HTTPStatusOKMin && r.StatusCode < constants.HTTPStatusOKMax
}

// Client talks to the Guidewire REST backend. Only transport failures are
// returned as errors, wrapped in apperrors.ErrBadGateway.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	cb      *circuitbreaker.Wrapper
}

func NewClient(cfg config.GatewayConfig, cbCfg config.CircuitBreakerConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BackendURL, "/"),
		client:  tracing.HTTPClient(),
		timeout: timeout,
		cb:      circuitbreaker.FromSettings("backend", cbCfg),
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends body to path (relative to the base URL) with the given query.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body []byte) (*Response, error) {
	resp, err := circuitbreaker.Do(ctx, c.cb, func() (*Response, error) {
		return c.send(ctx, method, path, query, body)
	})
	if err != nil {
		return nil, apperrors.ErrBadGateway.WithCause(err).WithDetail("path", path)
	}
	return resp, nil
}

// PathEscape escapes one path segment such as an entity id.
func PathEscape(segment string) string {
	return url.PathEscape(segment)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body []byte) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
