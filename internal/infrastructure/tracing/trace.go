package tracing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/keyx/internal/infrastructure/logging"
	"github.com/GriffinCanCode/keyx/internal/shared/id"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

const spanBuffer = 1000

// Span records one HTTP request through the server.
type Span struct {
	RequestID id.RequestID
	Name      string
	Method    string
	StartTime time.Time
	Duration  time.Duration
	Status    int
	Error     error
}

// Finish stamps the span duration.
func (s *Span) Finish() {
	s.Duration = time.Since(s.StartTime)
}

// Tracer collects finished spans and writes them to the log off the
// request path.
type Tracer struct {
	logger *logging.Logger
	spans  chan *Span
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// New starts a tracer. Call Close to flush it.
func New(logger *logging.Logger) *Tracer {
	if logger == nil {
		logger = logging.NewNop()
	}
	t := &Tracer{
		logger: logger.Named("tracing"),
		spans:  make(chan *Span, spanBuffer),
		done:   make(chan struct{}),
	}
	go t.collect()
	return t
}

// StartSpan opens a span for requestID, generating one when empty.
func (t *Tracer) StartSpan(ctx context.Context, name string, requestID id.RequestID) (*Span, context.Context) {
	if requestID == "" || !id.IsValid(string(requestID)) {
		requestID = id.NewRequestID()
	}
	span := &Span{
		RequestID: requestID,
		Name:      name,
		StartTime: time.Now(),
	}
	return span, WithRequestID(ctx, requestID)
}

// Submit hands a finished span to the collector. Spans are dropped when
// the buffer is full or the tracer is closed.
func (t *Tracer) Submit(span *Span) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.spans <- span:
	default:
		t.logger.Warn("span buffer full, dropping span", logging.Request(span.RequestID.String()))
	}
}

// Close stops the collector after draining queued spans.
func (t *Tracer) Close() {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.spans)
	}
	t.mu.Unlock()
	<-t.done
}

func (t *Tracer) collect() {
	defer close(t.done)
	for span := range t.spans {
		t.process(span)
	}
}

func (t *Tracer) process(span *Span) {
	fields := []zap.Field{
		logging.Request(span.RequestID.String()),
		zap.String("method", span.Method),
		zap.String("route", span.Name),
		zap.Int("status", span.Status),
		zap.Duration("duration", span.Duration),
	}
	if span.Error != nil {
		t.logger.Error("request completed with error", append(fields, zap.Error(span.Error))...)
		return
	}
	t.logger.Debug("request completed", fields...)
}

type contextKey struct{}

// WithRequestID stores a request ID on ctx.
func WithRequestID(ctx context.Context, requestID id.RequestID) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// RequestID returns the request ID stored on ctx, or "".
func RequestID(ctx context.Context) id.RequestID {
	requestID, _ := ctx.Value(contextKey{}).(id.RequestID)
	return requestID
}
