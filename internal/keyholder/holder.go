package keyholder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awnumar/memguard"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/keyx/internal/cipher"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/logging"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/keyx/internal/protocol"
)

// DefaultTimeout bounds a single decrypt.
const DefaultTimeout = 5 * time.Second

var (
	ErrClosed  = errors.New("key holder is closed")
	ErrRunning = errors.New("key holder is already running")
)

// Holder is the key-owning worker context.
type Holder struct {
	decrypter cipher.Decrypter
	slot      keySlot

	inbox  chan protocol.Request
	outbox chan protocol.Response

	timeout time.Duration
	logger  *logging.Logger
	metrics *monitoring.Metrics

	inflight sync.WaitGroup
	running  atomic.Bool
	done     chan struct{}
	once     sync.Once
}

// Option configures a Holder.
type Option func(*Holder)

// WithTimeout sets the per-decrypt timeout.
func WithTimeout(d time.Duration) Option {
	return func(h *Holder) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(h *Holder) {
		if l != nil {
			h.logger = l.Named("keyholder")
		}
	}
}

// WithMetrics records decrypt latency and key saves.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(h *Holder) {
		h.metrics = m
	}
}

// WithBuffer sets the inbox and outbox capacity.
func WithBuffer(n int) Option {
	return func(h *Holder) {
		if n > 0 {
			h.inbox = make(chan protocol.Request, n)
			h.outbox = make(chan protocol.Response, n)
		}
	}
}

// New creates a Holder. Call Run to start it.
func New(decrypter cipher.Decrypter, opts ...Option) *Holder {
	h := &Holder{
		decrypter: decrypter,
		inbox:     make(chan protocol.Request, 16),
		outbox:    make(chan protocol.Response, 16),
		timeout:   DefaultTimeout,
		logger:    logging.NewNop(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Post delivers a request to the holder. Messages from one caller are
// handled in the order posted.
func (h *Holder) Post(ctx context.Context, req protocol.Request) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}

	select {
	case h.inbox <- req:
		return nil
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Responses is closed after Run returns and every decrypt has finished.
func (h *Holder) Responses() <-chan protocol.Response {
	return h.outbox
}

// Run processes requests one at a time until ctx is done. The key is wiped
// when it returns.
func (h *Holder) Run(ctx context.Context) error {
	if !h.running.CompareAndSwap(false, true) {
		return ErrRunning
	}

	defer func() {
		h.once.Do(func() { close(h.done) })
		h.inflight.Wait()
		h.slot.clear()
		close(h.outbox)
		h.logger.Debug("Key holder stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-h.inbox:
			h.handle(ctx, req)
		}
	}
}

// handle applies the decision for one request.
func (h *Holder) handle(ctx context.Context, req protocol.Request) {
	d := decide(h.slot.held(), req)

	switch d.kind {
	case decideStore:
		h.logger.Debug("Key saved", logging.Redacted("key", d.key))
		h.slot.set(d.key)
		if h.metrics != nil {
			h.metrics.IncKeySaves()
		}
		h.emit(ctx, protocol.Response{Action: protocol.ActionKeySaved})

	case decideEmit:
		if d.response.Action == protocol.ActionRenderFailed {
			h.logger.Warn("Render failed", logging.Element(d.response.ID), zap.String("reason", d.response.Error))
		}
		h.emit(ctx, d.response)

	case decideDecrypt:
		h.inflight.Add(1)
		go h.decrypt(ctx, d.render.ID, d.render.Data, h.slot.snapshot())

	case decideDrop:
		id := ""
		if req.Render != nil {
			id = req.Render.ID
		}
		h.logger.Debug("Request dropped", zap.String("action", string(req.Action)), logging.Element(id), zap.String("reason", d.reason))
	}
}

// decrypt runs off the loop with its own deadline. It uses the enclave that
// was current when the request arrived.
func (h *Holder) decrypt(ctx context.Context, id, data string, enclave *memguard.Enclave) {
	defer h.inflight.Done()

	dctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	timer := monitoring.NewDecryptTimer(h.metrics, monitoring.PathHolder)
	// The enclave stays open until the decrypter returns, even past the
	// deadline.
	plaintext, err := cipher.Within(dctx, func() (string, error) {
		var plaintext string
		err := use(enclave, func(key []byte) error {
			var err error
			plaintext, err = h.decrypter.Decrypt(dctx, data, key)
			return err
		})
		return plaintext, err
	})
	elapsed := timer.Stop()

	switch {
	case err == nil:
		h.logger.Debug("Decrypted", logging.Element(id), zap.Duration("elapsed", elapsed))
		h.emit(ctx, protocol.Response{Action: protocol.ActionRender, ID: id, Data: plaintext})
	case ctx.Err() != nil:
		// holder is shutting down
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("Decrypt timed out", logging.Element(id), zap.Duration("timeout", h.timeout))
		h.emit(ctx, failed(id, protocol.ReasonTimeout))
	default:
		h.logger.Warn("Decrypt failed", logging.Element(id), zap.Error(err))
		h.emit(ctx, failed(id, protocol.ReasonDecryptFailed))
	}
}

func (h *Holder) emit(ctx context.Context, resp protocol.Response) {
	select {
	case h.outbox <- resp:
	case <-ctx.Done():
	}
}
