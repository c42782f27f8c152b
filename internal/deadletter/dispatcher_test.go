package deadletter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/config"
	"gateway/pkg/circuitbreaker"
	"gateway/pkg/models"
)

func TestHTTPDispatcher_Success(t *testing.T) {
	var gotBody string
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	d := NewHTTPDispatcher(config.RouteConfig{ID: "consume-billing-events", TargetURL: server.URL}, config.CircuitBreakerConfig{})

	err := d.Dispatch(context.Background(), testEnvelope())
	require.NoError(t, err)
	assert.JSONEq(t, `{"invoiceId":"INV-1"}`, gotBody)
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "invoice.created", gotHeaders.Get("X-Event-Type"))
	assert.Equal(t, "corr-1", gotHeaders.Get("X-Correlation-Id"))
	assert.Equal(t, "invoice.created-20250301103000000", gotHeaders.Get("X-Dedup-Key"))
}

func TestHTTPDispatcher_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	d := NewHTTPDispatcher(config.RouteConfig{ID: "r", TargetURL: server.URL, Method: "put"}, config.CircuitBreakerConfig{})
	err := d.Dispatch(context.Background(), testEnvelope())

	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, http.StatusServiceUnavailable, dispatchErr.StatusCode)
	assert.Contains(t, err.Error(), "maintenance")
	assert.True(t, dispatchErr.IsRetryable())
}

func TestHTTPDispatcher_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	d := NewHTTPDispatcher(config.RouteConfig{ID: "r", TargetURL: server.URL, Timeout: 20 * time.Millisecond}, config.CircuitBreakerConfig{})
	err := d.Dispatch(context.Background(), testEnvelope())

	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Zero(t, dispatchErr.StatusCode)
}

func TestHTTPDispatcher_OpenBreakerIsDispatchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewHTTPDispatcher(config.RouteConfig{ID: "r", TargetURL: server.URL}, config.CircuitBreakerConfig{
		Enabled:      true,
		MaxRequests:  1,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,
	})

	for i := 0; i < 2; i++ {
		_ = d.Dispatch(context.Background(), models.EventEnvelope{EventType: "invoice.created"})
	}

	err := d.Dispatch(context.Background(), models.EventEnvelope{EventType: "invoice.created"})
	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.True(t, errors.Is(err, circuitbreaker.ErrOpen))
}
