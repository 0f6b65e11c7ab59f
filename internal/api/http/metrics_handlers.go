package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSummary provides high-level counters
type MetricsSummary struct {
	Timestamp         time.Time `json:"timestamp"`
	TotalRequests     int64     `json:"total_requests"`
	ErrorRate         float64   `json:"error_rate"`
	ActiveConnections int64     `json:"active_connections"`
	Rendered          int64     `json:"rendered"`
	Failed            int64     `json:"failed"`
	UptimeSeconds     float64   `json:"uptime_seconds"`
}

// Prometheus serves the registry in exposition format.
func (h *Handlers) Prometheus() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}

// MetricsJSON returns a counter summary.
func (h *Handlers) MetricsJSON(c *gin.Context) {
	summary := MetricsSummary{
		Timestamp:     time.Now(),
		UptimeSeconds: time.Since(h.started).Seconds(),
	}

	if h.metrics != nil {
		snap := h.metrics.Snapshot()
		summary.TotalRequests = snap.TotalRequests
		summary.ActiveConnections = snap.ActiveConnections
		summary.Rendered = snap.Rendered
		summary.Failed = snap.Failed
		if snap.TotalRequests > 0 {
			summary.ErrorRate = float64(snap.TotalErrors) / float64(snap.TotalRequests)
		}
	}

	c.JSON(http.StatusOK, summary)
}
