package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header carries the request ID in both directions.
	Header     = "X-Request-ID"
	contextKey = "request_id"
	maxLength  = 128
)

// Middleware reuses a caller-supplied request ID or mints one.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(Header)
		if reqID == "" || len(reqID) > maxLength {
			reqID = uuid.NewString()
		}
		c.Set(contextKey, reqID)
		c.Writer.Header().Set(Header, reqID)
		c.Next()
	}
}

// Value returns the request ID stored on the context.
func Value(c *gin.Context) string {
	return c.GetString(contextKey)
}
