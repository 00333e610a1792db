package handler

import (
	"encoding/json"
	"time"

	"webhook-dispatcher/internal/adapter/http/dto"
	"webhook-dispatcher/internal/adapter/http/middleware"
	"webhook-dispatcher/internal/core/ports"
	"webhook-dispatcher/pkg/apperror"
	"webhook-dispatcher/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HeaderIdempotencyKey lets ingest clients retry a trigger without dispatching twice.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// EventHandler handles event ingestion.
type EventHandler struct {
	dispatcher ports.EventDispatcher
	idem       ports.IdempotencyCache // nil = Idempotency-Key ignored
	idemTTL    time.Duration
	log        zerolog.Logger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(dispatcher ports.EventDispatcher, idem ports.IdempotencyCache, idemTTL time.Duration, log zerolog.Logger) *EventHandler {
	return &EventHandler{dispatcher: dispatcher, idem: idem, idemTTL: idemTTL, log: log}
}

// Trigger handles POST /api/v1/events.
// The response is sent once deliveries are scheduled; delivery outcomes are never reported here.
func (h *EventHandler) Trigger(c *gin.Context) {
	var req dto.TriggerEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	idemKey := c.GetHeader(HeaderIdempotencyKey)
	if len(idemKey) > maxIdempotencyKeyLen {
		response.Error(c, apperror.Validation("Idempotency-Key too long"))
		return
	}
	cacheKey := ""
	if idemKey != "" && h.idem != nil {
		cacheKey = c.GetString(middleware.CtxClientID) + ":" + idemKey
		cached, err := h.idem.Get(c.Request.Context(), cacheKey)
		if err != nil {
			h.log.Warn().Err(err).Msg("idempotency lookup failed, dispatching")
		} else if cached != nil {
			c.Header("Idempotent-Replayed", "true")
			response.Accepted(c, json.RawMessage(cached))
			return
		}
	}

	var data any
	if len(req.Data) > 0 {
		data = req.Data
	}
	dispatch := h.dispatcher.Trigger(c.Request.Context(), req.Event, data)

	resp := dto.DispatchResponse{
		DispatchID: dispatch.ID.String(),
		Event:      dispatch.Event,
		Matched:    dispatch.Matched,
	}

	if cacheKey != "" {
		if raw, err := json.Marshal(resp); err == nil {
			if err := h.idem.Set(c.Request.Context(), cacheKey, raw, h.idemTTL); err != nil {
				h.log.Warn().Err(err).Msg("failed to store idempotent response")
			}
		}
	}

	response.Accepted(c, resp)
}
