package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/config"
	apperrors "gateway/pkg/errors"
)

func TestClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/policies", r.URL.Path)
		assert.Equal(t, "CU-1", r.URL.Query().Get("customerId"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"a":1}`, string(body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"policyNumber":"P-1"}`))
	}))
	defer server.Close()

	c := NewClient(config.GatewayConfig{BackendURL: server.URL + "/"}, config.CircuitBreakerConfig{})
	resp, err := c.Do(context.Background(), http.MethodPost, "/api/v1/policies", url.Values{"customerId": {"CU-1"}}, []byte(`{"a":1}`))

	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"policyNumber":"P-1"}`, string(resp.Body))
}

func TestClient_Non2xxIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}))
	defer server.Close()

	c := NewClient(config.GatewayConfig{BackendURL: server.URL}, config.CircuitBreakerConfig{})
	resp, err := c.Do(context.Background(), http.MethodGet, "/api/v1/claims/"+PathEscape("C 1"), nil, nil)

	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClient_TransportFailureIsBadGateway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := NewClient(config.GatewayConfig{BackendURL: server.URL, Timeout: 20 * time.Millisecond}, config.CircuitBreakerConfig{})
	_, err := c.Do(context.Background(), http.MethodGet, "/api/v1/policies", nil, nil)

	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, apperrors.ToHTTPStatus(err))
}
