package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewTimeoutMiddleware attaches a deadline to the request context so the
// usecase and store see it.
//   - timeout <= 0 の場合は何もしない
//   - 既に deadline がある場合は短い方を優先
func NewTimeoutMiddleware(logger *zap.Logger, timeout time.Duration) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		if dl, ok := ctx.Deadline(); ok && time.Until(dl) <= timeout {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warn("request timeout",
				zap.String("route", c.FullPath()),
				zap.Duration("timeout", timeout),
			)
			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusGatewayTimeout, errorResponse{Detail: "request timeout"})
			}
		}
	}
}
