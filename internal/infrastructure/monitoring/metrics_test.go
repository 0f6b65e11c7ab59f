package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRender(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordRender(PathFast, StatusRendered)
	m.RecordRender(PathHolder, StatusRendered)
	m.RecordRender(PathHolder, StatusFailed)
	m.RecordRender(PathHolder, StatusExpired)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Renders.WithLabelValues(PathHolder, StatusFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Renders.WithLabelValues(PathFast, StatusRendered)))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Rendered)
	assert.Equal(t, int64(2), snap.Failed)
}

func TestPendingGauge(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.AddPending(3)
	m.AddPending(-1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PendingRenders))
}

func TestIsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetricsWithRegistry(prometheus.NewRegistry())
		NewMetricsWithRegistry(prometheus.NewRegistry())
	})
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/frames/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/frames/abc", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/frames/:id", "204")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, int64(1), m.Snapshot().TotalErrors)
}

func TestMiddlewareSkipsWebSocketUpgrades(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/ws", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 0, testutil.CollectAndCount(m.RequestsTotal))
	assert.Equal(t, int64(0), m.Snapshot().TotalRequests)
}

func TestDecryptTimerNilMetrics(t *testing.T) {
	timer := NewDecryptTimer(nil, "direct")
	time.Sleep(time.Millisecond)
	assert.Greater(t, timer.Stop(), time.Duration(0))
}
