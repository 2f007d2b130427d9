package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/open-apime/zapdash/internal/metrics"
)

// Metrics usa a rota registrada (c.FullPath) como label para não explodir a
// cardinalidade com nomes de instância e IDs.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
