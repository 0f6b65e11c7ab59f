package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Render paths.
const (
	PathFast   = "fast"   // public base64 decode on the dispatcher
	PathDirect = "direct" // decrypt with a caller-supplied key
	PathHolder = "holder" // forwarded to the key holder
)

// Render statuses.
const (
	StatusRendered = "rendered"
	StatusFailed   = "failed"
	StatusExpired  = "expired"
	StatusDropped  = "dropped"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Pipeline metrics
	Renders         *prometheus.CounterVec
	DecryptDuration *prometheus.HistogramVec
	KeySaves        prometheus.Counter
	PendingRenders  prometheus.Gauge

	// Snapshot for the JSON health endpoint
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the health endpoint.
type Snapshot struct {
	TotalRequests     int64 `json:"total_requests"`
	TotalErrors       int64 `json:"total_errors"`
	ActiveConnections int64 `json:"active_connections"`
	Rendered          int64 `json:"rendered"`
	Failed            int64 `json:"failed"`
}

// NewMetrics registers metrics on the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers metrics on reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyx_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyx_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "keyx_ws_connections",
				Help: "Number of active WebSocket sessions",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyx_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "action"},
		),

		Renders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keyx_renders_total",
				Help: "Render requests by path and outcome",
			},
			[]string{"path", "status"},
		),
		DecryptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keyx_decrypt_duration_seconds",
				Help:    "Decrypt duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"context"},
		),
		KeySaves: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "keyx_key_saves_total",
				Help: "Number of saveKey messages handled",
			},
		),
		PendingRenders: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "keyx_pending_renders",
				Help: "Private render requests parked until a key is saved",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordRender records the outcome of one render request.
func (m *Metrics) RecordRender(path, status string) {
	m.Renders.WithLabelValues(path, status).Inc()

	m.mu.Lock()
	switch status {
	case StatusRendered:
		m.snapshot.Rendered++
	case StatusFailed, StatusExpired:
		m.snapshot.Failed++
	}
	m.mu.Unlock()
}

// ObserveDecrypt records decrypt latency for a context ("holder" or "direct").
func (m *Metrics) ObserveDecrypt(context string, d time.Duration) {
	m.DecryptDuration.WithLabelValues(context).Observe(d.Seconds())
}

// IncKeySaves increments the key save counter.
func (m *Metrics) IncKeySaves() {
	m.KeySaves.Inc()
}

// AddPending adjusts the parked request gauge.
func (m *Metrics) AddPending(delta int) {
	m.PendingRenders.Add(float64(delta))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, action string) {
	m.WSMessages.WithLabelValues(direction, action).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
