// Package middleware provides the gin middleware chain of the HTTP server.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/mida-chat/pkg/infra/middleware/common"
)

// maxRequestIDLen bounds client-supplied request IDs.
const maxRequestIDLen = 128

// RequestID propagates X-Request-ID, generating one when the client did
// not send a usable value. The ID is set on the response header and the
// request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(common.HeaderXRequestID)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = common.GenerateRequestID()
		}

		c.Header(common.HeaderXRequestID, requestID)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}
