package trace

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID carries the id between client and server
	HeaderRequestID = "X-Request-ID"

	ginKey = "request_id"
)

// RequestID reuses a caller supplied X-Request-ID or generates one, echoes it
// in the response and stores it in both the gin and request contexts.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > 128 {
			id = GenerateRequestID()
		}
		c.Set(ginKey, id)
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), RequestIDKey, id))
		c.Next()
	}
}

// FromGin returns the id stored by RequestID.
func FromGin(c *gin.Context) string {
	return c.GetString(ginKey)
}

// FromContext returns the id stored by RequestID, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}
