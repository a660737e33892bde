package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// RequestID tags every request with a UUID, reusing a well-formed id sent by the client.
func RequestID(ctx *gin.Context) {
	requestID := ctx.GetHeader(RequestIDHeader)
	if _, err := uuid.Parse(requestID); err != nil {
		requestID = uuid.NewString()
	}

	ctx.Set(RequestIDKey, requestID)
	ctx.Header(RequestIDHeader, requestID)
	ctx.Next()
}

func GetRequestID(ctx *gin.Context) string {
	return ctx.GetString(RequestIDKey)
}
