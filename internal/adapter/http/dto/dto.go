package dto

import "encoding/json"

// TriggerEventRequest is the request body for event ingestion.
// Data is forwarded to subscribers verbatim.
type TriggerEventRequest struct {
	Event string          `json:"event" binding:"required,max=128,event_name"`
	Data  json.RawMessage `json:"data"`
}

// DispatchResponse acknowledges an accepted event.
type DispatchResponse struct {
	DispatchID string `json:"dispatch_id"`
	Event      string `json:"event"`
	Matched    int    `json:"matched"`
}

// TestDeliveryRequest optionally overrides the data of a test delivery.
type TestDeliveryRequest struct {
	Data json.RawMessage `json:"data,omitempty"`
}

// TestDeliveryResponse reports a successful synchronous test delivery.
type TestDeliveryResponse struct {
	EndpointID string `json:"endpoint_id"`
	Event      string `json:"event"`
	Delivered  bool   `json:"delivered"`
}

// DeliveryLogResponse is one delivery log as exposed to admins.
type DeliveryLogResponse struct {
	ID         string  `json:"id"`
	Event      string  `json:"event"`
	Outcome    string  `json:"outcome"`
	Message    string  `json:"message"`
	Attempts   int     `json:"attempts"`
	HTTPStatus *int    `json:"http_status,omitempty"`
	DurationMs int64   `json:"duration_ms"`
	Error      *string `json:"error,omitempty"`
	ErrorTrace *string `json:"error_trace,omitempty"`
	Payload    string  `json:"request_payload"`
	CreatedAt  string  `json:"created_at"`
}

// DeliveryLogListResponse wraps the logs of one endpoint.
type DeliveryLogListResponse struct {
	EndpointID string                `json:"endpoint_id"`
	Count      int                   `json:"count"`
	Logs       []DeliveryLogResponse `json:"logs"`
}
