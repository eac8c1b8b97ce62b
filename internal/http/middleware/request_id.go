package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/zeus0z/cloudhumans-takehome/common/id"
	"github.com/zeus0z/cloudhumans-takehome/common/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID assigns every request an id, echoes it in the response header,
// and stamps it into the log fields for the rest of the request.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = id.NewString()
		}

		ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
			RequestID: logger.Ptr(requestID),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Header(requestIDHeader, requestID)

		c.Next()
	}
}
