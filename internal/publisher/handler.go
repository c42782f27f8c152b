package publisher

import (
	"encoding/json"
	"maps"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"gateway/internal/logger"
	"gateway/pkg/errors"
	"gateway/pkg/models"
)

type PublishEventRequest struct {
	EventType string            `json:"eventType" binding:"required"`
	Payload   json.RawMessage   `json:"payload"`
	Headers   map[string]string `json:"headers"`
}

type Handler struct {
	publisher *Publisher
	logger    logger.Logger
}

func NewHandler(p *Publisher, log logger.Logger) *Handler {
	return &Handler{publisher: p, logger: log}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/events", h.PublishEvent)
	}
}

// PublishEvent godoc
// @Summary      Publish an event
// @Description  Classify an event by type and publish it to its destination topic
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        event  body      PublishEventRequest  true  "Event"
// @Success      202    {object}  Result
// @Failure      400    {object}  map[string]interface{}
// @Failure      503    {object}  map[string]interface{}
// @Router       /events [post]
func (h *Handler) PublishEvent(c *gin.Context) {
	var req PublishEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	var headers models.Headers
	for _, k := range slices.Sorted(maps.Keys(req.Headers)) {
		headers.Set(k, req.Headers[k])
	}

	result, err := h.publisher.Publish(c.Request.Context(), req.EventType, req.Payload, headers)
	if err != nil {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
		c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
		return
	}

	c.JSON(http.StatusAccepted, result)
}
