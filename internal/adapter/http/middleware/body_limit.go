package middleware

import (
	"net/http"

	"webhook-dispatcher/pkg/apperror"
	"webhook-dispatcher/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxBodySize limits the request body to maxBytes. Requests declaring a larger
// Content-Length are rejected with 413 up front; others fail on read once the
// limit is crossed.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Abort(c, apperror.PayloadTooLarge())
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
