package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ingest Authentication (SEC) ----

func ErrInvalidAccessKey() *AppError {
	return New("SEC_001", "Invalid access key", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_002", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("SEC_003", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("SEC_004", "Nonce has already been used", http.StatusForbidden)
}

// ---- Admin Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Webhook Delivery (WHK) ----

func ErrEndpointNotFound() *AppError {
	return New("WHK_001", "Webhook endpoint not found", http.StatusNotFound)
}

func ErrDeliveryExhausted(err error) *AppError {
	return Wrap("WHK_002", "Webhook delivery failed after all retries", http.StatusBadGateway, err)
}

func ErrInvalidEndpoint(err error) *AppError {
	return Wrap("WHK_003", "Webhook endpoint configuration is invalid", http.StatusUnprocessableEntity, err)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}

// PayloadTooLarge rejects request bodies above the configured limit.
func PayloadTooLarge() *AppError {
	return New("REQ_002", "Request body too large", http.StatusRequestEntityTooLarge)
}
