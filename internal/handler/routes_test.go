package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/dto"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/middleware"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/service"
)

func buildRouter(mock *optimizerMock, metrics *service.MetricsService, deps map[string]Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.Metrics(metrics))

	metricsHandler := NewMetricsHandler(metrics, deps)
	router.GET("/health", metricsHandler.Health)
	router.GET("/ready", metricsHandler.Ready)
	router.GET("/metrics", metricsHandler.Prometheus)
	RegisterRoutes(router.Group("/api/v1"), &OptimizationHandler{service: mock}, metricsHandler)
	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutesEndToEnd(t *testing.T) {
	metrics := service.NewMetricsService()
	router := buildRouter(&optimizerMock{runResp: &dto.OptimizationResponse{RunID: "run-1"}}, metrics, nil)

	t.Run("sync run", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/optimizations", bytes.NewBufferString(`{"iterations":5}`))
		req.Header.Set("Content-Type", "application/json")
		require.Equal(t, http.StatusOK, performRequest(router, req).Code)
	})

	t.Run("queued run", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/optimizations/jobs", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		require.Equal(t, http.StatusAccepted, performRequest(router, req).Code)
	})

	t.Run("get run", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/optimizations/run-1", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"runId":"run-1"`)
	})

	t.Run("summary", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/metrics/summary", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `"requests":3`)
	})

	t.Run("prometheus", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "http_requests_total")
	})

	t.Run("unknown route", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/nope", nil)
		require.Equal(t, http.StatusNotFound, performRequest(router, req).Code)
	})
}

func TestReadyReportsFailingDependency(t *testing.T) {
	deps := map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}
	router := buildRouter(&optimizerMock{}, nil, deps)

	req, _ := http.NewRequest(http.MethodGet, "/ready", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, `"postgres":"ok"`)
	assert.True(t, strings.Contains(body, "connection refused"))

	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusServiceUnavailable, performRequest(router, req).Code)

	req, _ = http.NewRequest(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, performRequest(router, req).Code)
}
