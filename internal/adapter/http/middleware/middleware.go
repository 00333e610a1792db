package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"webhook-dispatcher/internal/core/ports"
	"webhook-dispatcher/pkg/apperror"
	"webhook-dispatcher/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Header names for HMAC authentication
	HeaderAccessKey = "X-Client-Access-Key"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderRequestID = "X-Request-ID"

	// Max timestamp drift allowed (60 seconds)
	maxTimestampDrift = 60 * time.Second

	// Nonce TTL (120 seconds), twice the drift window so a replay can never outlive its nonce.
	nonceTTL = 120 * time.Second

	// Context keys
	CtxClientID  = "client_id"
	CtxSubject   = "subject"
	CtxRequestID = response.RequestIDKey
)

// HMACAuth verifies HMAC-SHA256 signatures of event ingest clients.
// Pipeline: check timestamp -> resolve client -> check nonce -> verify signature.
func HMACAuth(
	clients ports.IngestClients,
	encSvc ports.EncryptionService,
	sigSvc ports.SignatureService,
	nonceStore ports.NonceStore,
	log zerolog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessKey := c.GetHeader(HeaderAccessKey)
		signature := c.GetHeader(HeaderSignature)
		timestampStr := c.GetHeader(HeaderTimestamp)
		nonce := c.GetHeader(HeaderNonce)

		if accessKey == "" || signature == "" || timestampStr == "" || nonce == "" {
			response.Abort(c, apperror.ErrInvalidAccessKey())
			return
		}

		// Step 1: Timestamp check
		timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
		if err != nil {
			response.Abort(c, apperror.ErrTimestampExpired())
			return
		}
		drift := time.Since(time.Unix(timestamp, 0))
		if drift > maxTimestampDrift || drift < -maxTimestampDrift {
			response.Abort(c, apperror.ErrTimestampExpired())
			return
		}

		// Step 2: Resolve client
		secretEnc, ok := clients.SecretFor(accessKey)
		if !ok {
			response.Abort(c, apperror.ErrInvalidAccessKey())
			return
		}
		clientID := strings.ToLower(accessKey)

		// Step 3: Nonce
		isNew, err := nonceStore.CheckAndSet(c.Request.Context(), clientID, nonce, nonceTTL)
		if err != nil {
			log.Warn().Err(err).Str("client_id", clientID).Msg("nonce store error, allowing request")
		} else if !isNew {
			response.Abort(c, apperror.ErrNonceUsed())
			return
		}

		// Step 4: Signature over the canonical string
		secret, err := encSvc.Decrypt(secretEnc)
		if err != nil {
			log.Error().Err(err).Str("client_id", clientID).Msg("failed to decrypt ingest client secret")
			response.Abort(c, apperror.ErrEncryptionFailure(err))
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Abort(c, apperror.PayloadTooLarge())
				return
			}
			response.Abort(c, apperror.Validation("cannot read request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		canonical := sigSvc.BuildCanonicalString(
			c.Request.Method,
			c.Request.URL.Path,
			timestamp,
			nonce,
			string(bodyBytes),
		)

		if !sigSvc.Verify(secret, []byte(canonical), signature) {
			response.Abort(c, apperror.ErrInvalidSignature())
			return
		}

		c.Set(CtxClientID, clientID)
		c.Next()
	}
}

// JWTAuth validates admin bearer tokens.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || tokenStr == "" {
			response.Abort(c, apperror.ErrInvalidToken())
			return
		}

		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			log.Debug().Err(err).Msg("rejected admin token")
			response.Abort(c, apperror.ErrInvalidToken())
			return
		}

		c.Set(CtxSubject, claims.Subject)
		c.Next()
	}
}

// RequestID propagates X-Request-ID, generating one when the caller sent none.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if err := c.Errors.Last(); err != nil {
			event = event.AnErr("cause", err.Err)
		}
		event.
			Str("request_id", c.GetString(CtxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Int64("duration_ms", latency.Milliseconds()).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Abort(c, apperror.InternalError(fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}
