package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hardik-0129/backend/internal/auth"
	"github.com/hardik-0129/backend/internal/logger"
)

// RequestLoggingMiddleware logs one structured record per request. Server
// errors are logged at error level, client errors at warn.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if userID, ok := auth.GetUserID(c); ok {
			fields = append(fields, "user_id", userID)
		}
		l := logger.With(fields...)

		switch {
		case status >= 500:
			l.Error("HTTP request")
		case status >= 400:
			l.Warn("HTTP request")
		default:
			l.Info("HTTP request")
		}
	}
}
