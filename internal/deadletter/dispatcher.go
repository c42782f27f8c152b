package deadletter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gateway/internal/config"
	"gateway/internal/constants"
	"gateway/pkg/circuitbreaker"
	"gateway/pkg/models"
	"gateway/pkg/tracing"
)

// Dispatcher delivers one envelope to a downstream system.
type Dispatcher interface {
	Dispatch(ctx context.Context, env models.EventEnvelope) error
}

type DispatcherFunc func(ctx context.Context, env models.EventEnvelope) error

func (f DispatcherFunc) Dispatch(ctx context.Context, env models.EventEnvelope) error {
	return f(ctx, env)
}

// DispatchError is a failed delivery attempt. StatusCode is zero when the
// request never got a response.
type DispatchError struct {
	StatusCode int
	Err        error
}

func (e *DispatchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dispatch failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("dispatch failed: %v", e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

func (e *DispatchError) IsRetryable() bool {
	return true
}

// HTTPDispatcher sends the payload as JSON to a route's target URL.
type HTTPDispatcher struct {
	client  *http.Client
	url     string
	method  string
	timeout time.Duration
	cb      *circuitbreaker.Wrapper
}

func NewHTTPDispatcher(route config.RouteConfig, cbCfg config.CircuitBreakerConfig) *HTTPDispatcher {
	method := strings.ToUpper(route.Method)
	if method == "" {
		method = http.MethodPost
	}
	timeout := route.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &HTTPDispatcher{
		client:  tracing.HTTPClient(),
		url:     route.TargetURL,
		method:  method,
		timeout: timeout,
		cb:      circuitbreaker.FromSettings("dispatch-"+route.ID, cbCfg),
	}
}

// WithClient replaces the HTTP client, used by tests.
func (d *HTTPDispatcher) WithClient(client *http.Client) *HTTPDispatcher {
	d.client = client
	return d
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, env models.EventEnvelope) error {
	_, err := circuitbreaker.Do(ctx, d.cb, func() (struct{}, error) {
		return struct{}{}, d.send(ctx, env)
	})
	if err == nil {
		return nil
	}

	var dispatchErr *DispatchError
	if errors.As(err, &dispatchErr) {
		return err
	}
	return &DispatchError{Err: err}
}

func (d *HTTPDispatcher) send(ctx context.Context, env models.EventEnvelope) error {
	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, d.method, d.url, bytes.NewReader(env.Payload))
	if err != nil {
		return &DispatchError{Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	for _, h := range env.Headers {
		req.Header.Set(h.Key, h.Value)
	}
	req.Header.Set("X-Event-Type", env.EventType)
	if env.DedupKey != "" {
		req.Header.Set("X-Dedup-Key", env.DedupKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return &DispatchError{Err: fmt.Errorf("request to %s failed: %w", d.url, err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return &DispatchError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s %s returned %s", d.method, d.url, strings.TrimSpace(string(body))),
		}
	}
	return nil
}
