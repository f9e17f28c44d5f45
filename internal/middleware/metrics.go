package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/service"
)

const (
	// UnmatchedRoute is the path label for requests no route handled, so
	// scanned or mistyped URLs share one series.
	UnmatchedRoute = "unmatched"
	// ScrapeRoute is the Prometheus endpoint; scraping it is not traffic.
	ScrapeRoute = "/metrics"
)

// Metrics records request count and latency per route template.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		switch route {
		case ScrapeRoute:
			return
		case "":
			route = UnmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
