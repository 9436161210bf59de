package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/bounty-indexer/internal/metrics"
)

// MetricsMiddleware пишет счётчик и длительность запросов.
// Путь берётся из шаблона маршрута, чтобы не плодить метки по идентификаторам.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordAPIRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start).Seconds())
	}
}
