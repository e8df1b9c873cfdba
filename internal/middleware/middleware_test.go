package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(reg *prometheus.Registry, buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.Use(NewRequestLogger(logging.NewWriterLogger("api", buf, logging.INFO)).Handler())
	promMw := NewPrometheusMiddleware("test", reg)
	r.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(r, reg)

	r.GET("/test", func(c *gin.Context) {
		_, ok := c.Get("trace_id")
		c.JSON(200, gin.H{"trace": ok})
	})
	r.GET("/error", func(c *gin.Context) {
		c.JSON(500, gin.H{"error": "test error"})
	})
	return r
}

func TestPrometheusMiddlewareBasicMetrics(t *testing.T) {
	// Отдельный реестр для изоляции тестов
	registry := prometheus.NewRegistry()
	r := newRouter(registry, &bytes.Buffer{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"trace":true}`, w.Body.String())

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/error", nil))
	assert.Equal(t, 500, w2.Code)

	metricFamilies, err := registry.Gather()
	require.NoError(t, err)

	var durationFound, errorsFound bool
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "test_http_request_duration_seconds":
			durationFound = true
			assert.Equal(t, "Длительность HTTP-запросов.", mf.GetHelp())
			assert.Len(t, mf.Metric, 2)
		case "test_http_request_errors_total":
			errorsFound = true
			// Одна ошибка (500)
			require.Len(t, mf.Metric, 1)
			assert.Equal(t, float64(1), mf.Metric[0].GetCounter().GetValue())
		}
	}

	assert.True(t, durationFound, "Duration metric not found")
	assert.True(t, errorsFound, "Errors metric not found")
}

func TestUnmatchedPathLabel(t *testing.T) {
	registry := prometheus.NewRegistry()
	r := newRouter(registry, &bytes.Buffer{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope/123", nil))
	assert.Equal(t, 404, w.Code)
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	r := newRouter(registry, &bytes.Buffer{})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_inflight")
}

func TestRequestLoggerWritesLine(t *testing.T) {
	var buf bytes.Buffer
	r := newRouter(prometheus.NewRegistry(), &buf)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Contains(t, buf.String(), "[HTTP] ◀ GET /test 200")
}
