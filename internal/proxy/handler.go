package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"gateway/internal/backend"
	"gateway/internal/logger"
	apperrors "gateway/pkg/errors"
	"gateway/pkg/models"
)

const maxRequestBytes = 5 << 20

type EventPublisher interface {
	PublishAsync(ctx context.Context, eventType string, payload json.RawMessage, headers models.Headers)
}

// Resource is one backend collection exposed unchanged under the same path.
type Resource struct {
	Center       string
	Path         string
	CreatedEvent string
	UpdatedEvent string
}

func DefaultResources() []Resource {
	return []Resource{
		{Center: "PolicyCenter", Path: "/api/v1/policies", CreatedEvent: "policy.created", UpdatedEvent: "policy.updated"},
		{Center: "ClaimCenter", Path: "/api/v1/claims", CreatedEvent: "incident.created", UpdatedEvent: "incident.updated"},
		{Center: "BillingCenter", Path: "/api/v1/gw-invoices", CreatedEvent: "invoice.created", UpdatedEvent: "invoice.updated"},
	}
}

type Handler struct {
	resources []Resource
	backend   *backend.Client
	publisher EventPublisher
	logger    logger.Logger
}

func NewHandler(resources []Resource, client *backend.Client, publisher EventPublisher, log logger.Logger) *Handler {
	return &Handler{
		resources: resources,
		backend:   client,
		publisher: publisher,
		logger:    log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	for _, res := range h.resources {
		group := router.Group(res.Path)
		{
			group.GET("", h.list(res))
			group.GET("/:id", h.get(res))
			group.POST("", h.create(res))
			group.PATCH("/:id", h.update(res))
		}
	}
}

func (h *Handler) list(res Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.forward(c, res, http.MethodGet, res.Path, nil, "")
	}
}

func (h *Handler) get(res Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.forward(c, res, http.MethodGet, res.Path+"/"+backend.PathEscape(c.Param("id")), nil, "")
	}
}

func (h *Handler) create(res Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := h.readBody(c)
		if !ok {
			return
		}
		h.forward(c, res, http.MethodPost, res.Path, body, res.CreatedEvent)
	}
}

func (h *Handler) update(res Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := h.readBody(c)
		if !ok {
			return
		}
		h.forward(c, res, http.MethodPatch, res.Path+"/"+backend.PathEscape(c.Param("id")), body, res.UpdatedEvent)
	}
}

func (h *Handler) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, apperrors.ToErrorResponse(apperrors.ErrValidation.WithCause(err)))
		return nil, false
	}
	if len(body) > 0 && !json.Valid(body) {
		c.JSON(http.StatusBadRequest, apperrors.ToErrorResponse(
			apperrors.ErrValidation.WithCause(errors.New("request body is not valid JSON"))))
		return nil, false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	return body, true
}

// forward relays the backend response as is. event is published when set
// and the backend answered 2xx.
func (h *Handler) forward(c *gin.Context, res Resource, method, path string, body []byte, event string) {
	ctx := c.Request.Context()

	resp, err := h.backend.Do(ctx, method, path, c.Request.URL.Query(), body)
	if err != nil {
		h.logger.ErrorwCtx(ctx, "Backend unavailable",
			"center", res.Center,
			"method", method,
			"path", path,
			"error", err,
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      res.Center + " service unavailable",
			"error_code": apperrors.ErrBadGateway.Code,
		})
		return
	}

	if event != "" && resp.OK() && h.publisher != nil && json.Valid(resp.Body) {
		var headers models.Headers
		headers.Set("source", res.Center)
		headers.Set("method", method)
		h.publisher.PublishAsync(ctx, event, resp.Body, headers)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}
