package supervisor

import (
	"context"
	"sort"

	"gateway/internal/route"
	"gateway/pkg/health"
)

// RouteController answers status queries for consumer routes.
type RouteController interface {
	RouteStatus(id string) (route.Status, bool)
}

// RouteHealth is the aggregate verdict over the tracked routes.
type RouteHealth struct {
	Status  health.Status           `json:"status"`
	Routes  map[string]route.Status `json:"routes"`
	Running int                     `json:"running"`
	Total   int                     `json:"total"`
}

// Supervisor is read-only: it never starts or stops routes.
type Supervisor struct {
	controller RouteController
	routeIDs   []string
}

func New(controller RouteController, routeIDs []string) *Supervisor {
	ids := append([]string(nil), routeIDs...)
	sort.Strings(ids)
	return &Supervisor{controller: controller, routeIDs: ids}
}

// Health is UP when every tracked route is started, DOWN when none is, and
// DEGRADED in between. An empty tracked set is UP.
func (s *Supervisor) Health(_ context.Context) RouteHealth {
	routes := make(map[string]route.Status, len(s.routeIDs))
	running := 0

	for _, id := range s.routeIDs {
		status, ok := s.controller.RouteStatus(id)
		switch {
		case !ok:
			status = route.StatusNotFound
		case status == "":
			status = route.StatusUnknown
		}
		if status == route.StatusStarted {
			running++
		}
		routes[id] = status
	}

	total := len(s.routeIDs)
	verdict := health.StatusDegraded
	switch {
	case running == total:
		verdict = health.StatusUp
	case running == 0:
		verdict = health.StatusDown
	}

	return RouteHealth{
		Status:  verdict,
		Routes:  routes,
		Running: running,
		Total:   total,
	}
}
