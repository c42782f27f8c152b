package soap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gateway/internal/backend"
	"gateway/internal/bridge"
	"gateway/internal/logger"
	apperrors "gateway/pkg/errors"
	"gateway/pkg/metrics"
	"gateway/pkg/models"
)

const (
	HeaderSOAPAction    = "SOAPAction"
	HeaderOperationName = "X-Operation-Name"
	HeaderCorrelationID = "X-Correlation-Id"

	contentTypeXML  = "text/xml; charset=utf-8"
	maxRequestBytes = 5 << 20
)

// EventPublisher is the wire tap for operations that create entities.
type EventPublisher interface {
	PublishAsync(ctx context.Context, eventType string, payload json.RawMessage, headers models.Headers)
}

type Handler struct {
	centers   []Center
	backend   *backend.Client
	publisher EventPublisher
	logger    logger.Logger
}

func NewHandler(centers []Center, client *backend.Client, publisher EventPublisher, log logger.Logger) *Handler {
	return &Handler{
		centers:   centers,
		backend:   client,
		publisher: publisher,
		logger:    log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	for _, center := range h.centers {
		router.POST(center.Path, h.serve(center))
	}
}

func (h *Handler) serve(center Center) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()

		correlationID := c.GetHeader(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		c.Header(HeaderCorrelationID, correlationID)

		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBytes))
		if err != nil {
			h.fault(c, center.Name, "unknown", start, "soap:Client", err)
			return
		}

		req, err := ParseRequest(string(raw))
		if err != nil {
			h.fault(c, center.Name, "unknown", start, "soap:Client",
				&bridge.TransformationError{Direction: bridge.DirectionXMLToJSON, Err: err})
			return
		}

		opName := operationName(c.Request.Header, req)
		op, ok := center.Operation(opName)
		if !ok {
			h.logger.WarnwCtx(ctx, "Unknown SOAP operation",
				"center", center.Name,
				"operation", opName,
			)
			metrics.SoapRequestsTotal.WithLabelValues(center.Name, "unknown", "ignored").Inc()
			c.Data(http.StatusOK, contentTypeXML, []byte(bridge.EmptyEnvelope()))
			return
		}

		h.logger.InfowCtx(ctx, "SOAP request",
			"center", center.Name,
			"operation", op.Name,
			"correlation_id", correlationID,
		)

		status, body, err := h.invoke(ctx, op, req)
		if err != nil {
			h.fault(c, center.Name, op.Name, start, faultCode(err), err)
			return
		}

		out, err := bridge.JSONToSoapXML(string(body))
		if err != nil {
			h.fault(c, center.Name, op.Name, start, "soap:Server", err)
			return
		}

		if op.Event != "" && status >= http.StatusOK && status < http.StatusMultipleChoices && h.publisher != nil {
			var headers models.Headers
			headers.Set(HeaderCorrelationID, correlationID)
			headers.Set("source", center.Name)
			headers.Set("operation", op.Name)
			h.publisher.PublishAsync(ctx, op.Event, body, headers)
		}

		metrics.SoapRequestsTotal.WithLabelValues(center.Name, op.Name, "success").Inc()
		metrics.ObserveSoapRequestDuration(center.Name, op.Name, time.Since(start))
		c.Data(status, contentTypeXML, []byte(out))
	}
}

// invoke converts the request, calls the backend and returns its status and
// body. Backend errors are returned as responses, not errors.
func (h *Handler) invoke(ctx context.Context, op Operation, req Request) (int, []byte, error) {
	var payload []byte
	fields := map[string]string{}

	if op.Transform {
		converted, err := bridge.SoapXMLToJSON(req.Body)
		if err != nil {
			return 0, nil, err
		}
		fields = converted.Headers
		if strings.TrimSpace(converted.Body) != "" {
			payload = []byte(converted.Body)
		}
	}

	path := op.Path
	if op.IDField != "" {
		id := fields[op.IDField]
		if id == "" {
			return 0, nil, apperrors.ErrValidation.WithDetail("field", op.IDField).
				WithCause(errMissingField(op.IDField))
		}
		path += "/" + backend.PathEscape(id)
	}

	var body []byte
	if op.Method == http.MethodPost {
		body = payload
		if body == nil {
			body = []byte("{}")
		}
	}

	resp, err := h.backend.Do(ctx, op.Method, path, nil, body)
	if err != nil {
		return 0, nil, err
	}
	if !resp.OK() {
		h.logger.WarnwCtx(ctx, "Backend returned an error status",
			"operation", op.Name,
			"path", path,
			"status", resp.StatusCode,
		)
	}
	return resp.StatusCode, resp.Body, nil
}

func (h *Handler) fault(c *gin.Context, center, operation string, start time.Time, code string, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "SOAP request failed",
		"center", center,
		"operation", operation,
		"error", err,
	)
	metrics.SoapRequestsTotal.WithLabelValues(center, operation, "fault").Inc()
	metrics.ObserveSoapRequestDuration(center, operation, time.Since(start))
	c.Data(http.StatusInternalServerError, contentTypeXML, []byte(Fault(code, err.Error())))
}

// faultCode blames the client for requests that could not be understood.
func faultCode(err error) string {
	if apperrors.IsValidation(err) || apperrors.IsTransformation(err) {
		return "soap:Client"
	}
	return "soap:Server"
}

// operationName prefers the SOAPAction header, then X-Operation-Name, then
// the payload element name.
func operationName(header http.Header, req Request) string {
	if action := soapAction(header.Get(HeaderSOAPAction)); action != "" {
		return action
	}
	if name := strings.TrimSpace(header.Get(HeaderOperationName)); name != "" {
		return name
	}
	return req.Operation
}

// soapAction strips quotes and any URI prefix: "urn:ws/getPolicy" and
// "http://host/ws#getPolicy" both yield getPolicy.
func soapAction(value string) string {
	v := strings.Trim(strings.TrimSpace(value), `"`)
	if i := strings.LastIndexAny(v, "/#:"); i >= 0 {
		v = v[i+1:]
	}
	return v
}

type errMissingField string

func (e errMissingField) Error() string {
	return "request is missing " + string(e)
}
