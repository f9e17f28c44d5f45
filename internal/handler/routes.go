package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the API under group. Operational endpoints such as
// /health and /metrics are mounted by the caller on the root engine.
func RegisterRoutes(group *gin.RouterGroup, optimizations *OptimizationHandler, metrics *MetricsHandler) {
	group.POST("/optimizations", optimizations.Run)
	group.POST("/optimizations/jobs", optimizations.Submit)
	group.GET("/optimizations/:id", optimizations.Get)
	group.GET("/optimizations/:id/export", optimizations.Export)
	group.POST("/problems", optimizations.SaveProblem)
	if metrics != nil {
		group.GET("/metrics/summary", metrics.Summary)
	}
}
