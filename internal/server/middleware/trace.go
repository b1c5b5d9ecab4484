package middleware

import (
	"strings"

	"gide/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	TraceIDHeader   = "X-Trace-Id"
	RequestIDHeader = "X-Request-Id"
)

// TraceMiddleware ensures each request has a trace ID for logs and responses.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := strings.TrimSpace(c.GetHeader(TraceIDHeader))
		if traceID == "" {
			traceID = uuid.NewString()
		}
		ctx := contextkey.With(c.Request.Context(), contextkey.TraceID, traceID)
		c.Set(string(contextkey.TraceID), traceID)
		c.Writer.Header().Set(TraceIDHeader, traceID)

		if requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader)); requestID != "" {
			ctx = contextkey.With(ctx, contextkey.RequestID, requestID)
			c.Set(string(contextkey.RequestID), requestID)
			c.Writer.Header().Set(RequestIDHeader, requestID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
