package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/service"
)

func TestMetricsHandlerPrometheus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.ObserveGeneration("class", 3, 120*time.Millisecond)
	h := NewMetricsHandler(metrics, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bulletins_generated_total")
}

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": func(ctx context.Context) error { return nil },
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/ready", nil)
	h.Ready(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)
}

func TestMetricsHandlerReadyDegraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/ready", nil)
	h.Ready(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"connection refused"`)
	assert.Contains(t, w.Body.String(), `"postgres":"ok"`)
}

func TestMetricsHandlerQueueDepth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	require.NoError(t, metrics.TrackQueueDepth("bulletin-render", func() int { return 4 }))
	require.Error(t, metrics.TrackQueueDepth("bulletin-render", func() int { return 0 }))
	h := NewMetricsHandler(metrics, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)

	assert.Contains(t, w.Body.String(), `job_queue_depth{queue="bulletin-render"} 4`)
}
