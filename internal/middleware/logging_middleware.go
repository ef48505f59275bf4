package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"relaychat/internal/metrics"
	"relaychat/pkg/logger"
)

func LoggingMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		if l != nil {
			l.Infof("%s %s %d %s", method, path, status, latency.String())
		}
	}
}
