package requestid

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carries the request id in both directions.
const Header = "X-Request-ID"

const ginKey = "request_id"

type ctxKey struct{}

// Middleware reuses a well-formed inbound X-Request-ID or mints a UUID, and
// exposes it on the gin context, the request context and the response.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := sanitize(c.GetHeader(Header))
		if reqID == "" {
			reqID = uuid.NewString()
		}

		c.Set(ginKey, reqID)
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), reqID))
		c.Writer.Header().Set(Header, reqID)

		c.Next()
	}
}

// Value returns the request ID stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(ginKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithContext attaches a request id to ctx.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request id carried by ctx, if any.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// sanitize drops client supplied ids that are too long or carry characters
// unsafe for log lines and NATS payloads.
func sanitize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > 64 {
		return ""
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return ""
		}
	}
	return raw
}
