package handler

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"webhook-dispatcher/internal/adapter/http/dto"
	"webhook-dispatcher/internal/core/domain"
	"webhook-dispatcher/internal/core/ports"
	"webhook-dispatcher/internal/service"
	"webhook-dispatcher/pkg/apperror"
	"webhook-dispatcher/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TestEventName is the event of payloads sent by the test-delivery endpoint.
const TestEventName = "webhook.test"

// EndpointHandler serves admin operations on registered endpoints.
type EndpointHandler struct {
	registry ports.EndpointRegistry
	worker   ports.DeliveryWorker
	logs     ports.DeliveryLogger
	source   string
	now      func() time.Time
}

// NewEndpointHandler creates a new EndpointHandler.
func NewEndpointHandler(registry ports.EndpointRegistry, worker ports.DeliveryWorker, logs ports.DeliveryLogger, source string) *EndpointHandler {
	return &EndpointHandler{registry: registry, worker: worker, logs: logs, source: source, now: time.Now}
}

// TestDelivery handles POST /api/v1/endpoints/:id/test.
// It delivers synchronously, regardless of the endpoint's subscriptions or active flag,
// and is cut short if the admin's request is cancelled.
func (h *EndpointHandler) TestDelivery(c *gin.Context) {
	endpoint, ok := h.loadEndpoint(c)
	if !ok {
		return
	}

	var req dto.TestDeliveryRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
	}

	var data any = map[string]string{
		"endpoint_id": endpoint.ID.String(),
		"message":     "This is a test delivery.",
	}
	if len(req.Data) > 0 {
		data = json.RawMessage(req.Data)
	}

	payload := domain.NewWebhookPayload(TestEventName, data, h.source, h.now())
	if err := h.worker.Deliver(c.Request.Context(), *endpoint, payload); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEndpoint):
			response.Error(c, apperror.ErrInvalidEndpoint(err))
		case errors.Is(err, service.ErrDeliveryExhausted):
			response.Error(c, apperror.ErrDeliveryExhausted(err))
		default:
			response.Error(c, apperror.InternalError(err))
		}
		return
	}

	response.OK(c, dto.TestDeliveryResponse{
		EndpointID: endpoint.ID.String(),
		Event:      TestEventName,
		Delivered:  true,
	})
}

// ListLogs handles GET /api/v1/endpoints/:id/logs?limit=N.
func (h *EndpointHandler) ListLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.Error(c, apperror.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}

	endpoint, ok := h.loadEndpoint(c)
	if !ok {
		return
	}

	logs, err := h.logs.ListByEndpoint(c.Request.Context(), endpoint.ID, limit)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}

	items := make([]dto.DeliveryLogResponse, 0, len(logs))
	for _, l := range logs {
		items = append(items, toDeliveryLogResponse(l))
	}
	response.OK(c, dto.DeliveryLogListResponse{
		EndpointID: endpoint.ID.String(),
		Count:      len(items),
		Logs:       items,
	})
}

func (h *EndpointHandler) loadEndpoint(c *gin.Context) (*domain.Endpoint, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("endpoint id must be a UUID"))
		return nil, false
	}

	endpoint, err := h.registry.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return nil, false
	}
	if endpoint == nil {
		response.Error(c, apperror.ErrEndpointNotFound())
		return nil, false
	}
	return endpoint, true
}

func toDeliveryLogResponse(l domain.DeliveryAttemptLog) dto.DeliveryLogResponse {
	out := dto.DeliveryLogResponse{
		ID:         l.ID.String(),
		Event:      l.EventName,
		Outcome:    string(l.Outcome),
		Message:    l.Message,
		Attempts:   l.Attempts,
		HTTPStatus: l.HTTPStatus,
		DurationMs: l.DurationMs,
		Payload:    l.RequestPayload,
		CreatedAt:  l.CreatedAt.UTC().Format(time.RFC3339),
	}
	if l.ErrorDetail != nil {
		out.Error = &l.ErrorDetail.Message
		if l.ErrorDetail.Trace != "" {
			out.ErrorTrace = &l.ErrorDetail.Trace
		}
	}
	return out
}
