package soap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/backend"
	"gateway/internal/config"
	"gateway/internal/logger"
	"gateway/pkg/models"
)

type published struct {
	eventType string
	payload   string
	headers   models.Headers
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) PublishAsync(_ context.Context, eventType string, payload json.RawMessage, headers models.Headers) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{eventType: eventType, payload: string(payload), headers: headers})
}

func setupRouter(t *testing.T, backendHandler http.HandlerFunc) (*gin.Engine, *fakePublisher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := httptest.NewServer(backendHandler)
	t.Cleanup(server.Close)

	client := backend.NewClient(config.GatewayConfig{BackendURL: server.URL}, config.CircuitBreakerConfig{})
	pub := &fakePublisher{}
	router := gin.New()
	NewHandler(DefaultCenters(), client, pub, logger.NopLogger()).RegisterRoutes(router)
	return router, pub
}

func post(router *gin.Engine, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/xml")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_GetPolicy(t *testing.T) {
	router, pub := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/policies/P-100", r.URL.Path)
		_, _ = w.Write([]byte(`{"policyNumber":"P-100","status":"ACTIVE"}`))
	})

	w := post(router, "/ws/policycenter", getPolicyEnvelope, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/xml")
	assert.NotEmpty(t, w.Header().Get(HeaderCorrelationID))
	assert.Contains(t, w.Body.String(), "<policyNumber>P-100</policyNumber><status>ACTIVE</status>")
	assert.Empty(t, pub.events)
}

func TestHandler_CreateClaimPublishesEvent(t *testing.T) {
	router, pub := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/claims", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"policyNumber":"P-1","description":"hail"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"claimId":"C-9"}`))
	})

	doc := `<createClaim><policyNumber>P-1</policyNumber><description>hail</description></createClaim>`
	w := post(router, "/ws/claimcenter", doc, map[string]string{
		HeaderSOAPAction:    `"urn:claimcenter/createClaim"`,
		HeaderCorrelationID: "corr-1",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "corr-1", w.Header().Get(HeaderCorrelationID))
	require.Len(t, pub.events, 1)
	assert.Equal(t, "incident.created", pub.events[0].eventType)
	assert.JSONEq(t, `{"claimId":"C-9"}`, pub.events[0].payload)
	assert.Equal(t, "corr-1", pub.events[0].headers.Value(HeaderCorrelationID))
	assert.Equal(t, "ClaimCenter", pub.events[0].headers.Value("source"))
}

func TestHandler_FailedCreateDoesNotPublish(t *testing.T) {
	router, pub := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid"}`))
	})

	w := post(router, "/ws/billingcenter", `<createInvoice><amount>1</amount></createInvoice>`, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "<error>invalid</error>")
	assert.Empty(t, pub.events)
}

func TestHandler_OperationHeaderFallback(t *testing.T) {
	router, _ := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/policies", r.URL.Path)
		_, _ = w.Write([]byte(`[{"policyNumber":"P-1"}]`))
	})

	w := post(router, "/ws/policycenter", `<whatever/>`, map[string]string{HeaderOperationName: "listPolicies"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<policyNumber>P-1</policyNumber>")
}

func TestHandler_UnknownOperation(t *testing.T) {
	router, _ := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called")
	})

	w := post(router, "/ws/policycenter", `<cancelEverything/>`, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<soap:Body><Empty/></soap:Body>")
}

func TestHandler_MissingIDIsClientFault(t *testing.T) {
	router, _ := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called")
	})

	w := post(router, "/ws/claimcenter", `<getClaim><other>x</other></getClaim>`, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "<faultcode>soap:Client</faultcode>")
	assert.Contains(t, w.Body.String(), "claimId")
}

func TestHandler_MalformedRequestIsClientFault(t *testing.T) {
	router, _ := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {})

	w := post(router, "/ws/policycenter", `<getPolicy><policyNumber>`, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "<faultcode>soap:Client</faultcode>")
}

func TestHandler_BackendDownIsServerFault(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := backend.NewClient(config.GatewayConfig{BackendURL: url}, config.CircuitBreakerConfig{})
	router := gin.New()
	NewHandler(DefaultCenters(), client, nil, logger.NopLogger()).RegisterRoutes(router)

	w := post(router, "/ws/policycenter", getPolicyEnvelope, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "<faultcode>soap:Server</faultcode>")
}
