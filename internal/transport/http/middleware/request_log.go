package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"docqa/internal/pkg/logger"
)

const logModule = "devserver.http"

// RequestLog records one line per request through the structured logger.
func RequestLog(log logger.ILogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		details := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if userID, ok := UserID(c); ok {
			details["user_id"] = userID
		}
		if c.Writer.Status() >= 500 {
			log.Error(logModule, "request failed", details)
			return
		}
		log.Info(logModule, "request", details)
	}
}
