package supervisor

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gateway/internal/constants"
	"gateway/pkg/health"
)

type Report struct {
	Status     health.Status                 `json:"status"`
	Timestamp  time.Time                     `json:"timestamp"`
	Routes     RouteHealth                   `json:"routes"`
	Components map[string]health.CheckResult `json:"components,omitempty"`
}

// Handler serves GET /health by combining the route verdict with the
// component checkers. Only DOWN maps to 503.
type Handler struct {
	supervisor *Supervisor
	checkers   *health.CheckerRegistry
}

func NewHandler(s *Supervisor, checkers *health.CheckerRegistry) *Handler {
	if checkers == nil {
		checkers = health.NewCheckerRegistry()
	}
	return &Handler{supervisor: s, checkers: checkers}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
}

func (h *Handler) Report(c *gin.Context) Report {
	ctx := c.Request.Context()
	routes := h.supervisor.Health(ctx)
	components := h.checkers.Check(ctx)

	return Report{
		Status:     combine(routes.Status, components.Status),
		Timestamp:  time.Now(),
		Routes:     routes,
		Components: components.Checks,
	}
}

// Health godoc
// @Summary      Gateway health
// @Description  Aggregate route and component health
// @Tags         health
// @Produce      json
// @Success      200  {object}  Report
// @Failure      503  {object}  Report
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	report := h.Report(c)
	status := http.StatusOK
	if report.Status == health.StatusDown {
		status = http.StatusServiceUnavailable
	}
	c.Header("X-Service", constants.ServiceName)
	c.JSON(status, report)
}

// combine lets the routes decide DOWN. A failing component only degrades.
func combine(routes, components health.Status) health.Status {
	if routes == health.StatusDown {
		return health.StatusDown
	}
	if routes == health.StatusDegraded || components != health.StatusUp {
		return health.StatusDegraded
	}
	return health.StatusUp
}
