package middlewares

import (
	"github.com/asistiot/asistiot-agent/internal/constants"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDMW tags the request with a request id, reusing a valid
// X-Request-ID sent by the caller.
func RequestIDMW() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requestID := ctx.GetHeader(constants.HeaderXRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		ctx.Request.Header.Set(constants.APIFieldRequestID, requestID)
		ctx.Set(constants.APIFieldRequestID, requestID)
		ctx.Header(constants.HeaderXRequestID, requestID)
		ctx.Next()
	}
}
