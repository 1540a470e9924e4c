package httpadapter

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewLoggingMiddleware logs every request with method, route, status,
// duration and request_id(あれば).
func NewLoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		}
		if rid, ok := RequestIDFromContext(c.Request.Context()); ok {
			fields = append(fields, zap.String("request_id", rid))
		}

		if status >= http.StatusInternalServerError {
			logger.Error("http request", fields...)
		} else {
			logger.Info("http request", fields...)
		}
	}
}
