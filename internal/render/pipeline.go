package render

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/keyx/internal/cipher"
	"github.com/GriffinCanCode/keyx/internal/dom"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/logging"
	"github.com/GriffinCanCode/keyx/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/keyx/internal/keyholder"
	"github.com/GriffinCanCode/keyx/internal/sanitize"
)

// Deps are the collaborators shared by every pipeline of a process.
type Deps struct {
	Sanitizer sanitize.Sanitizer
	Decrypter cipher.Decrypter
	Options   Options
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics
}

// Pipeline is one key holder and one dispatcher bound to a document.
type Pipeline struct {
	*Dispatcher
	doc    *dom.Document
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Start runs a pipeline over doc until Close or ctx cancellation. Extra
// options are applied to the dispatcher.
func Start(ctx context.Context, doc *dom.Document, deps Deps, options ...Option) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	holder := keyholder.New(deps.Decrypter,
		keyholder.WithTimeout(deps.Options.DecryptTimeout),
		keyholder.WithBuffer(deps.Options.QueueSize),
		keyholder.WithLogger(logger),
		keyholder.WithMetrics(deps.Metrics),
	)

	opts := append([]Option{WithLogger(logger), WithMetrics(deps.Metrics)}, options...)
	dispatcher := New(dom.NewInjector(doc, deps.Sanitizer), holder, deps.Decrypter, deps.Options, opts...)

	ctx, cancel := context.WithCancel(ctx)
	p := &Pipeline{Dispatcher: dispatcher, doc: doc, cancel: cancel}

	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		_ = holder.Run(ctx)
	}()
	go func() {
		defer p.wg.Done()
		_ = dispatcher.Run(ctx)
	}()

	return p
}

// Document returns the document the pipeline writes to.
func (p *Pipeline) Document() *dom.Document {
	return p.doc
}

// Close stops both loops and waits for them. The key is wiped.
func (p *Pipeline) Close() {
	p.cancel()
	p.wg.Wait()
}
