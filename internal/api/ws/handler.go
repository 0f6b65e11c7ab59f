package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/keyx/internal/dom"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/logging"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/keyx/internal/protocol"
	"github.com/GriffinCanCode/keyx/internal/render"
	"github.com/GriffinCanCode/keyx/internal/sanitize"
	"github.com/GriffinCanCode/keyx/internal/shared/id"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	sendBufferSize = 64
)

// Config controls connection acceptance.
type Config struct {
	// AllowedOrigins lists permitted Origin headers. Empty or "*" allows all.
	AllowedOrigins []string
}

// Handler manages WebSocket connections
type Handler struct {
	deps     render.Deps
	upgrader websocket.Upgrader
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(deps render.Deps, cfg Config, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	deps.Metrics = metrics
	deps.Logger = logger

	return &Handler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		metrics: metrics,
		logger:  logger.Named("ws"),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleConnection upgrades the request and runs a render session until the
// client disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	sessionID := id.NewSessionID()
	s := &session{
		id:      sessionID,
		conn:    conn,
		send:    make(chan protocol.Response, sendBufferSize),
		metrics: h.metrics,
		logger:  h.logger.With(logging.Session(sessionID.String())),
	}

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	s.run(c.Request.Context(), h.deps)
}

// session is one client connection and its pipeline.
type session struct {
	id       id.SessionID
	conn     *websocket.Conn
	send     chan protocol.Response
	pipeline *render.Pipeline
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

func (s *session) run(parent context.Context, deps render.Deps) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	s.logger.Info("Session opened")

	s.pipeline = render.Start(ctx, dom.NewDocument(), deps,
		render.WithNotify(func(o render.Outcome) { s.enqueue(ctx, outcomeResponse(o)) }),
		render.WithKeySaved(func() { s.enqueue(ctx, protocol.Response{Action: protocol.ActionKeySaved}) }),
	)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx)
	}()

	s.readLoop(ctx)

	cancel()
	s.pipeline.Close()
	<-writerDone
	s.conn.Close()
	s.logger.Info("Session closed")
}

func (s *session) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(sanitize.MaxPayloadSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		env, err := protocol.Decode(raw)
		if err != nil {
			s.enqueue(ctx, errorResponse("", "invalid message"))
			continue
		}
		s.record("in", string(env.Action))

		if err := s.handle(ctx, env); err != nil {
			s.logger.Debug("Message rejected", zap.String("action", string(env.Action)), zap.Error(err))
		}
	}
}

func (s *session) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case resp := <-s.send:
			raw, err := protocol.Encode(resp)
			if err != nil {
				s.logger.Error("Failed to encode response", zap.Error(err))
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				s.logger.Debug("WebSocket write error", zap.Error(err))
				return
			}
			s.record("out", string(resp.Action))

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) enqueue(ctx context.Context, resp protocol.Response) {
	select {
	case s.send <- resp:
	case <-ctx.Done():
	}
}

func (s *session) record(direction, action string) {
	if s.metrics != nil {
		s.metrics.RecordWSMessage(direction, action)
	}
}
