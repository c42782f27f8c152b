package route

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gateway/internal/logger"
	"gateway/pkg/errors"
)

type Handler struct {
	registry *Registry
	logger   logger.Logger
}

func NewHandler(registry *Registry, log logger.Logger) *Handler {
	return &Handler{registry: registry, logger: log}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		routes := v1.Group("/routes")
		{
			routes.GET("", h.ListRoutes)
			routes.POST("/:id/suspend", h.SuspendRoute)
			routes.POST("/:id/resume", h.ResumeRoute)
		}
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

// ListRoutes godoc
// @Summary      List consumer routes
// @Tags         routes
// @Produce      json
// @Success      200  {array}  Info
// @Router       /routes [get]
func (h *Handler) ListRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.List())
}

// SuspendRoute godoc
// @Summary      Suspend a consumer route
// @Tags         routes
// @Produce      json
// @Param        id   path      string  true  "Route ID"
// @Success      200  {object}  Info
// @Failure      404  {object}  map[string]interface{}
// @Router       /routes/{id}/suspend [post]
func (h *Handler) SuspendRoute(c *gin.Context) {
	id := c.Param("id")
	if err := h.registry.Suspend(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	h.respondWithRoute(c, id)
}

// ResumeRoute godoc
// @Summary      Resume a consumer route
// @Tags         routes
// @Produce      json
// @Param        id   path      string  true  "Route ID"
// @Success      200  {object}  Info
// @Failure      404  {object}  map[string]interface{}
// @Router       /routes/{id}/resume [post]
func (h *Handler) ResumeRoute(c *gin.Context) {
	id := c.Param("id")
	if err := h.registry.Resume(id); err != nil {
		h.handleError(c, err)
		return
	}
	h.respondWithRoute(c, id)
}

func (h *Handler) respondWithRoute(c *gin.Context, id string) {
	for _, info := range h.registry.List() {
		if info.ID == id {
			c.JSON(http.StatusOK, info)
			return
		}
	}
	h.handleError(c, errors.ErrNotFound.WithDetail("route", id))
}
