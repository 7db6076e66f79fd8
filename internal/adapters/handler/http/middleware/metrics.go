package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestMetrics receives one observation per served request.
type RequestMetrics interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
}

// MetricsMiddleware labels requests by route template so path parameters
// do not explode label cardinality. Unmatched routes share one label.
func MetricsMiddleware(m RequestMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.IncRequestsTotal(endpoint, c.Writer.Status())
		m.ObserveRequestDuration(endpoint, time.Since(start))
	}
}
