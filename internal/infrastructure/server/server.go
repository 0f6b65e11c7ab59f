package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/keyx/internal/api/http"
	"github.com/GriffinCanCode/keyx/internal/api/middleware"
	"github.com/GriffinCanCode/keyx/internal/api/ws"
	"github.com/GriffinCanCode/keyx/internal/cipher"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/config"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/logging"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/keyx/internal/render"
	"github.com/GriffinCanCode/keyx/internal/sanitize"
)

// WebSocketPath is served without compression.
const WebSocketPath = "/ws"

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	handler    http.Handler
	httpServer *http.Server
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
	registry   *prometheus.Registry
	tracer     *tracing.Tracer
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		l, err := logging.New(logging.Config{Level: cfg.Logging.Level})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return New(cfg, logger, registry)
}

// New creates a server with an explicit logger and metrics registry.
func New(cfg *config.Config, logger *logging.Logger, registry *prometheus.Registry) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Initializing keyx server",
		zap.String("port", cfg.Server.Port),
		zap.String("gate", cfg.Render.Gate),
		zap.String("sanitizer", cfg.Sanitizer.Policy),
	)

	metrics := monitoring.NewMetricsWithRegistry(registry)

	policy, err := sanitize.New(cfg.Sanitizer.Policy, cfg.Sanitizer.AllowListFile)
	if err != nil {
		return nil, fmt.Errorf("failed to build sanitizer: %w", err)
	}

	deps := render.Deps{
		Sanitizer: policy,
		Decrypter: cipher.NewAESGCMSIV(),
		Options:   render.OptionsFromConfig(cfg.Render),
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	tracer := tracing.New(logger)

	router.Use(gin.Recovery())
	router.Use(tracing.Middleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.CORSFromOrigins(cfg.Server.CORSOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := apihttp.NewHandlers(deps, metrics, registry, logger)
	wsHandler := ws.NewHandler(deps, ws.Config{AllowedOrigins: cfg.Server.CORSOrigins}, metrics, logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", handlers.Prometheus())
	router.GET("/metrics/json", handlers.MetricsJSON)
	router.POST("/render", handlers.Render)
	router.GET(WebSocketPath, wsHandler.HandleConnection)

	compressed := gzhttp.GzipHandler(router)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == WebSocketPath {
			router.ServeHTTP(w, r)
			return
		}
		compressed.ServeHTTP(w, r)
	})

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		handler:  handler,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		registry: registry,
		tracer:   tracer,
	}, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for handlers. Open
// WebSocket sessions end when their connections close.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

// Close drains the tracer and flushes the logger.
func (s *Server) Close() error {
	s.tracer.Close()
	_ = s.logger.Sync()
	return nil
}
