package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDKey = "request_id"

// RequestID injects a unique identifier for each incoming HTTP request.
//
// The UUID is stored in the Gin context under RequestIDKey and exposed to
// clients via the X-Request-ID response header, so one request can be traced
// across logs, the query audit trail, and client reports.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(RequestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// GetRequestID returns the request id injected by RequestID, or "" when the
// middleware did not run.
func GetRequestID(c *gin.Context) string {
	rid, _ := c.Get(RequestIDKey)
	return toString(rid)
}
