package response

import (
	"errors"
	"net/http"
	"time"

	"webhook-dispatcher/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key holding the request's correlation ID.
const RequestIDKey = "request_id"

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Data      any    `json:"data"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the standard error envelope.
// Causes wrapped in an AppError are never serialized.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

var internalError = apperror.New("SYS_000", "Internal server error", http.StatusInternalServerError)

// OK sends a 200 response with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope(c, data))
}

// Accepted sends a 202 response for work that continues after the request returns.
func Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, envelope(c, data))
}

// Error sends an error response. Anything that is not an *apperror.AppError
// becomes SYS_000. Server-side failures are attached to c.Errors so the
// request logger can report the cause.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = internalError
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(appErr.HTTPStatus, ErrorResponse{
		ErrorCode: appErr.Code,
		Message:   appErr.Message,
		RequestID: requestID(c),
		Timestamp: timestamp(),
	})
}

// Abort sends an error response and stops the handler chain.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

func envelope(c *gin.Context, data any) SuccessResponse {
	return SuccessResponse{Data: data, RequestID: requestID(c), Timestamp: timestamp()}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// requestID returns the ID set by the request-ID middleware, or a fresh one
// for handlers exercised without it.
func requestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return uuid.NewString()
}
