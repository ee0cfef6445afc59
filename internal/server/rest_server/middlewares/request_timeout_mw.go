package middlewares

import (
	"context"
	"errors"
	"time"

	"github.com/asistiot/asistiot-agent/internal/api_response"
	"github.com/asistiot/asistiot-agent/internal/cerrors"
	"github.com/gin-gonic/gin"
)

// RequestTimeoutMW bounds the request context. Handlers observe the deadline
// through ctx.Request.Context(); a handler that gave up without writing gets a
// timeout response.
func RequestTimeoutMW(timeoutDuration time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tCtx, cancel := context.WithTimeout(ctx.Request.Context(), timeoutDuration)
		defer cancel()
		ctx.Request = ctx.Request.WithContext(tCtx)

		ctx.Next()

		if ctx.Writer.Written() || !errors.Is(tCtx.Err(), context.DeadlineExceeded) {
			return
		}
		resp := api_response.New[any](ctx)
		resp.Populate(
			cerrors.ErrGenericRequestTimedOut.Code,
			cerrors.ErrGenericRequestTimedOut.Message,
			nil,
			nil,
			nil,
		)
		ctx.AbortWithStatusJSON(cerrors.ErrGenericRequestTimedOut.HTTPStatus, resp)
	}
}
