package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/route"
	"gateway/pkg/health"
)

type fakeController map[string]route.Status

func (f fakeController) RouteStatus(id string) (route.Status, bool) {
	s, ok := f[id]
	return s, ok
}

var ids = []string{"consume-billing-events", "consume-incident-events", "consume-customer-events"}

func TestHealth_Aggregation(t *testing.T) {
	tests := []struct {
		name       string
		controller fakeController
		want       health.Status
		running    int
	}{
		{
			name: "all started",
			controller: fakeController{
				"consume-billing-events":  route.StatusStarted,
				"consume-incident-events": route.StatusStarted,
				"consume-customer-events": route.StatusStarted,
			},
			want:    health.StatusUp,
			running: 3,
		},
		{
			name: "two of three",
			controller: fakeController{
				"consume-billing-events":  route.StatusStarted,
				"consume-incident-events": route.StatusStarted,
				"consume-customer-events": route.StatusSuspended,
			},
			want:    health.StatusDegraded,
			running: 2,
		},
		{
			name: "one of three",
			controller: fakeController{
				"consume-billing-events":  route.StatusStarted,
				"consume-incident-events": route.StatusStopped,
			},
			want:    health.StatusDegraded,
			running: 1,
		},
		{
			name: "none started",
			controller: fakeController{
				"consume-billing-events":  route.StatusStopped,
				"consume-incident-events": route.StatusSuspended,
				"consume-customer-events": route.StatusStopped,
			},
			want:    health.StatusDown,
			running: 0,
		},
		{
			name:       "all not found",
			controller: fakeController{},
			want:       health.StatusDown,
			running:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(tt.controller, ids).Health(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Equal(t, tt.running, h.Running)
			assert.Equal(t, 3, h.Total)
			assert.Len(t, h.Routes, 3)
		})
	}
}

func TestHealth_NotFoundAndUnknown(t *testing.T) {
	h := New(fakeController{"a": ""}, []string{"a", "b"}).Health(context.Background())
	assert.Equal(t, route.StatusUnknown, h.Routes["a"])
	assert.Equal(t, route.StatusNotFound, h.Routes["b"])
}

func TestHealth_NoRoutesIsUp(t *testing.T) {
	h := New(fakeController{}, nil).Health(context.Background())
	assert.Equal(t, health.StatusUp, h.Status)
	assert.Zero(t, h.Total)
}

func TestCombine(t *testing.T) {
	assert.Equal(t, health.StatusUp, combine(health.StatusUp, health.StatusUp))
	assert.Equal(t, health.StatusDegraded, combine(health.StatusUp, health.StatusDown))
	assert.Equal(t, health.StatusDegraded, combine(health.StatusDegraded, health.StatusUp))
	assert.Equal(t, health.StatusDown, combine(health.StatusDown, health.StatusUp))
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	serve := func(controller fakeController, checkers *health.CheckerRegistry) (*httptest.ResponseRecorder, Report) {
		router := gin.New()
		NewHandler(New(controller, []string{"a"}), checkers).RegisterRoutes(router)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		var report Report
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		return w, report
	}

	w, report := serve(fakeController{"a": route.StatusStarted}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, health.StatusUp, report.Status)

	checkers := health.NewCheckerRegistry()
	checkers.Register(health.NewCheckerFunc("kafka", func(context.Context) error { return errors.New("dial tcp: refused") }))
	w, report = serve(fakeController{"a": route.StatusStarted}, checkers)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, health.StatusDegraded, report.Status)
	assert.Equal(t, health.StatusDown, report.Components["kafka"].Status)

	w, report = serve(fakeController{"a": route.StatusSuspended}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, health.StatusDown, report.Status)
	assert.Equal(t, route.StatusSuspended, report.Routes.Routes["a"])
}
