package render

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/keyx/internal/cipher"
	"github.com/GriffinCanCode/keyx/internal/dom"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/config"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/logging"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/keyx/internal/protocol"
	"github.com/GriffinCanCode/keyx/internal/shared/id"
)

// KeyHolder is the message interface of the key-owning context.
type KeyHolder interface {
	Post(ctx context.Context, req protocol.Request) error
	Responses() <-chan protocol.Response
}

// Options configures a Dispatcher.
type Options struct {
	Gate           string
	DecryptTimeout time.Duration
	PendingTTL     time.Duration
	QueueSize      int
}

// OptionsFromConfig maps the render section of the service configuration.
func OptionsFromConfig(cfg config.RenderConfig) Options {
	return Options{
		Gate:           cfg.Gate,
		DecryptTimeout: cfg.DecryptTimeout,
		PendingTTL:     cfg.PendingTTL,
		QueueSize:      cfg.QueueSize,
	}
}

// Option sets optional collaborators.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l.Named("render")
		}
	}
}

// WithMetrics records render outcomes.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithNotify receives every outcome on the dispatcher goroutine.
func WithNotify(fn func(Outcome)) Option {
	return func(d *Dispatcher) {
		d.notify = fn
	}
}

// WithKeySaved is called on the dispatcher goroutine when the holder
// acknowledges a key.
func WithKeySaved(fn func()) Option {
	return func(d *Dispatcher) {
		d.keySaved = fn
	}
}

type eventKind int

const (
	eventMount eventKind = iota
	eventUpdate
	eventRender
	eventSaveKey
	eventDirect
)

type event struct {
	kind      eventKind
	elementID string
	key       []byte
	result    Result
}

type flight struct {
	req Request
}

// Dispatcher routes element events to the fast, direct and holder paths.
type Dispatcher struct {
	injector  *dom.Injector
	holder    KeyHolder
	decrypter cipher.Decrypter
	opts      Options

	logger   *logging.Logger
	metrics  *monitoring.Metrics
	notify   func(Outcome)
	keySaved func()

	events chan event
	done   chan struct{}
	once   sync.Once
	active atomic.Bool
	direct sync.WaitGroup

	// Loop-owned state.
	inflight  map[id.RenderID]flight
	latest    map[string]id.RenderID
	pending   *pendingRegistry
	keyed     bool
	saveEmpty bool
	outbound  []protocol.Request
}

// New creates a Dispatcher writing through injector. decrypter serves the
// direct path; holder serves the holder path.
func New(injector *dom.Injector, holder KeyHolder, decrypter cipher.Decrypter, opts Options, options ...Option) *Dispatcher {
	if opts.Gate == "" {
		opts.Gate = config.GatePublicOnly
	}
	if opts.DecryptTimeout <= 0 {
		opts.DecryptTimeout = 5 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}

	d := &Dispatcher{
		injector:  injector,
		holder:    holder,
		decrypter: decrypter,
		opts:      opts,
		logger:    logging.NewNop(),
		notify:    func(Outcome) {},
		keySaved:  func() {},
		events:    make(chan event, opts.QueueSize),
		done:      make(chan struct{}),
		inflight:  make(map[id.RenderID]flight),
		latest:    make(map[string]id.RenderID),
		pending:   newPendingRegistry(opts.PendingTTL),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Mount reports a new content element.
func (d *Dispatcher) Mount(ctx context.Context, elementID string) error {
	return d.enqueue(ctx, event{kind: eventMount, elementID: elementID})
}

// Update reports changed attributes on a content element.
func (d *Dispatcher) Update(ctx context.Context, elementID string) error {
	return d.enqueue(ctx, event{kind: eventUpdate, elementID: elementID})
}

// Render renders an element on demand. With a key the data is decrypted
// directly; the dispatcher owns key afterwards and wipes it. Without a key
// public data is decoded and private data goes to the key holder.
func (d *Dispatcher) Render(ctx context.Context, elementID string, key []byte) error {
	return d.enqueue(ctx, event{kind: eventRender, elementID: elementID, key: key})
}

// SaveKey hands key material to the key holder.
func (d *Dispatcher) SaveKey(ctx context.Context, material []byte) error {
	return d.enqueue(ctx, event{kind: eventSaveKey, key: material})
}

func (d *Dispatcher) enqueue(ctx context.Context, ev event) error {
	select {
	case <-d.done:
		return ErrClosed
	default:
	}

	select {
	case d.events <- ev:
		return nil
	case <-d.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes events until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.active.CompareAndSwap(false, true) {
		return errors.New("dispatcher is already running")
	}

	forward := make(chan protocol.Request)
	var forwarder sync.WaitGroup
	forwarder.Add(1)
	go func() {
		defer forwarder.Done()
		d.forward(ctx, forward)
	}()

	defer func() {
		d.once.Do(func() { close(d.done) })
		close(forward)
		forwarder.Wait()
		d.direct.Wait()
		if d.metrics != nil && d.pending.len() > 0 {
			d.metrics.AddPending(-d.pending.len())
		}
		d.logger.Debug("Dispatcher stopped")
	}()

	var tick <-chan time.Time
	if d.opts.PendingTTL > 0 {
		interval := d.opts.PendingTTL / 2
		if interval < 5*time.Millisecond {
			interval = 5 * time.Millisecond
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	responses := d.holder.Responses()

	for {
		var (
			send chan<- protocol.Request
			head protocol.Request
		)
		if len(d.outbound) > 0 {
			send = forward
			head = d.outbound[0]
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case send <- head:
			d.outbound[0] = protocol.Request{}
			d.outbound = d.outbound[1:]

		case ev := <-d.events:
			d.handleEvent(ctx, ev)

		case resp, ok := <-responses:
			if !ok {
				d.logger.Warn("Key holder closed")
				responses = nil
				continue
			}
			d.handleResponse(resp)

		case now := <-tick:
			d.expire(now)
		}
	}
}

// forward posts queued requests to the holder in order.
func (d *Dispatcher) forward(ctx context.Context, in <-chan protocol.Request) {
	for req := range in {
		if err := d.holder.Post(ctx, req); err != nil {
			d.logger.Debug("Forward to key holder failed", zap.String("action", string(req.Action)), zap.Error(err))
		}
	}
}

func (d *Dispatcher) handleEvent(ctx context.Context, ev event) {
	switch ev.kind {
	case eventMount, eventUpdate:
		d.onElement(ev.elementID)
	case eventRender:
		d.onRender(ctx, ev.elementID, ev.key)
	case eventSaveKey:
		d.onSaveKey(ev.key)
	case eventDirect:
		d.complete(ev.result)
	}
}

// onElement applies the visibility gate to a mount or update.
func (d *Dispatcher) onElement(elementID string) {
	if d.opts.Gate != config.GateAlways {
		if el, ok := d.injector.Document().Lookup(elementID); ok && el.Visibility() == dom.Private {
			d.logger.Debug("Private element waits for explicit render", logging.Element(elementID))
			return
		}
	}

	req, ok := d.newRequest(elementID)
	if !ok {
		return
	}

	if d.opts.Gate == config.GateAlways {
		d.viaHolder(req)
		return
	}
	d.fast(req)
}

func (d *Dispatcher) onRender(ctx context.Context, elementID string, key []byte) {
	req, ok := d.newRequest(elementID)
	if !ok {
		wipe(key)
		return
	}

	// Without a key, private data goes to the holder (or waits for one)
	// instead of being base64-decoded: an envelope is never rendered as if
	// it were public content.
	switch {
	case len(key) > 0:
		d.directDecrypt(ctx, req, key)
	case req.Visibility == dom.Public:
		d.fast(req)
	default:
		d.viaHolder(req)
	}
}

func (d *Dispatcher) onSaveKey(material []byte) {
	d.saveEmpty = len(material) == 0
	if d.saveEmpty {
		d.keyed = false
	}
	d.outbound = append(d.outbound, protocol.SaveKey(material))
}

// newRequest snapshots the element and makes the request its latest.
func (d *Dispatcher) newRequest(elementID string) (Request, bool) {
	req := Request{
		RequestID: id.NewRenderID(),
		ElementID: elementID,
		issued:    time.Now(),
	}

	el, ok := d.injector.Document().Lookup(elementID)
	if !ok {
		d.finish(req, Outcome{Status: StatusFailed, Reason: protocol.ReasonNotFound})
		return Request{}, false
	}

	req.Payload = el.Data()
	req.Visibility = el.Visibility()
	d.latest[elementID] = req.RequestID

	if _, replaced := d.pending.remove(elementID); replaced {
		d.trackPending(-1)
	}
	return req, true
}

// fast decodes public data on the loop.
func (d *Dispatcher) fast(req Request) {
	req.path = monitoring.PathFast

	plaintext, err := protocol.DecodePublic(req.Payload)
	if err != nil {
		d.finish(req, Outcome{Status: StatusFailed, Reason: protocol.ReasonDecodeFailed})
		return
	}
	d.inject(req, plaintext)
}

func (d *Dispatcher) directDecrypt(ctx context.Context, req Request, key []byte) {
	req.path = monitoring.PathDirect

	if !cipher.IsEnvelope(req.Payload) {
		wipe(key)
		d.finish(req, Outcome{Status: StatusFailed, Reason: protocol.ReasonDecodeFailed})
		return
	}

	d.inflight[req.RequestID] = flight{req: req}
	d.direct.Add(1)
	go func() {
		defer d.direct.Done()

		dctx, cancel := context.WithTimeout(ctx, d.opts.DecryptTimeout)
		defer cancel()

		timer := monitoring.NewDecryptTimer(d.metrics, monitoring.PathDirect)
		plaintext, err := cipher.Within(dctx, func() (string, error) {
			defer wipe(key)
			return d.decrypter.Decrypt(dctx, req.Payload, key)
		})
		timer.Stop()

		res := Result{RequestID: req.RequestID, ElementID: req.ElementID, Plaintext: []byte(plaintext), Err: err}
		select {
		case d.events <- event{kind: eventDirect, result: res}:
		case <-d.done:
		}
	}()
}

// viaHolder forwards to the key holder, parking private requests until a
// key has been acknowledged.
func (d *Dispatcher) viaHolder(req Request) {
	req.path = monitoring.PathHolder

	if req.Visibility == dom.Private {
		if !cipher.IsEnvelope(req.Payload) {
			d.finish(req, Outcome{Status: StatusFailed, Reason: protocol.ReasonDecodeFailed})
			return
		}
		if !d.keyed {
			d.park(req)
			return
		}
	}

	d.send(req)
}

func (d *Dispatcher) send(req Request) {
	d.inflight[req.RequestID] = flight{req: req}
	d.outbound = append(d.outbound, protocol.Render(req.RequestID.String(), req.Payload, req.Visibility == dom.Public))
}

func (d *Dispatcher) park(req Request) {
	if _, replaced := d.pending.park(req, time.Now()); !replaced {
		d.trackPending(1)
	}
	d.logger.Debug("Parked until a key is saved", logging.Element(req.ElementID), logging.Request(req.RequestID.String()))
}

func (d *Dispatcher) handleResponse(resp protocol.Response) {
	switch resp.Action {
	case protocol.ActionKeySaved:
		d.keyed = !d.saveEmpty
		d.keySaved()
		if d.keyed {
			d.reconcile()
		}

	case protocol.ActionRender:
		d.complete(Result{RequestID: id.RenderID(resp.ID), Plaintext: []byte(resp.Data)})

	case protocol.ActionRenderFailed:
		d.complete(Result{RequestID: id.RenderID(resp.ID), Err: reasonError(resp.Error)})

	default:
		d.logger.Debug("Ignoring key holder message", zap.String("action", string(resp.Action)))
	}
}

// reconcile re-sends parked requests now that a key is held.
func (d *Dispatcher) reconcile() {
	parked := d.pending.drain()
	if len(parked) == 0 {
		return
	}
	d.trackPending(-len(parked))
	d.logger.Debug("Re-sending parked requests", zap.Int("count", len(parked)))
	for _, req := range parked {
		d.send(req)
	}
}

func (d *Dispatcher) expire(now time.Time) {
	for _, req := range d.pending.expire(now) {
		d.trackPending(-1)
		d.finish(req, Outcome{Status: StatusExpired, Reason: protocol.ReasonExpired})
	}
}

// complete injects a finished decrypt if its request is still the latest
// for the element.
func (d *Dispatcher) complete(res Result) {
	f, ok := d.inflight[res.RequestID]
	if !ok {
		d.logger.Debug("Unknown completion", logging.Request(res.RequestID.String()))
		return
	}
	delete(d.inflight, res.RequestID)
	req := f.req

	if d.latest[req.ElementID] != req.RequestID {
		d.logger.Debug("Discarding stale completion", logging.Element(req.ElementID), logging.Request(req.RequestID.String()))
		d.record(req.path, monitoring.StatusDropped)
		return
	}

	if res.Err != nil {
		d.finish(req, Outcome{Status: StatusFailed, Reason: reasonOf(res.Err)})
		return
	}
	d.inject(req, res.Plaintext)
}

func (d *Dispatcher) inject(req Request, plaintext []byte) {
	written, err := d.injector.Inject(req.ElementID, plaintext)
	wipe(plaintext)
	if err != nil {
		d.logger.Warn("Injection failed", logging.Element(req.ElementID), zap.Error(err))
		d.finish(req, Outcome{Status: StatusFailed, Reason: reasonOf(err)})
		return
	}
	d.finish(req, Outcome{Status: StatusRendered, Document: written})
}

// finish reports the outcome of req and forgets it.
func (d *Dispatcher) finish(req Request, out Outcome) {
	out.RequestID = req.RequestID
	out.ElementID = req.ElementID
	if d.latest[req.ElementID] == req.RequestID {
		delete(d.latest, req.ElementID)
	}

	if out.Status != StatusRendered {
		d.logger.Debug("Render did not complete", logging.Element(req.ElementID), zap.String("status", string(out.Status)), zap.String("reason", out.Reason))
	}

	path := req.path
	if path == "" {
		path = monitoring.PathFast
	}
	d.record(path, string(out.Status))
	d.notify(out)
}

func (d *Dispatcher) record(path, status string) {
	if d.metrics != nil {
		d.metrics.RecordRender(path, status)
	}
}

func (d *Dispatcher) trackPending(delta int) {
	if d.metrics != nil {
		d.metrics.AddPending(delta)
	}
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
