package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GriffinCanCode/keyx/internal/infrastructure/logging"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/keyx/internal/render"
)

// Version of the service reported by the banner.
const Version = "0.1.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	deps     render.Deps
	metrics  *monitoring.Metrics
	gatherer prometheus.Gatherer
	logger   *logging.Logger
	started  time.Time
}

// NewHandlers creates a new handler set. gatherer backs /metrics.
func NewHandlers(deps render.Deps, metrics *monitoring.Metrics, gatherer prometheus.Gatherer, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	deps.Metrics = metrics
	deps.Logger = logger
	return &Handlers{
		deps:     deps,
		metrics:  metrics,
		gatherer: gatherer,
		logger:   logger.Named("http"),
		started:  time.Now(),
	}
}

// Root reports the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "keyx",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":         "healthy",
		"gate":           h.deps.Options.Gate,
		"uptime_seconds": time.Since(h.started).Seconds(),
	}
	if p, ok := h.deps.Sanitizer.(interface{ Name() string }); ok {
		body["sanitizer"] = p.Name()
	}
	if h.metrics != nil {
		body["counters"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}
