package dom

import (
	"fmt"

	"github.com/GriffinCanCode/keyx/internal/sanitize"
)

// Injector writes sanitized documents into iframes.
type Injector struct {
	doc       *Document
	sanitizer sanitize.Sanitizer
}

// NewInjector binds a sanitizer to a document.
func NewInjector(doc *Document, sanitizer sanitize.Sanitizer) *Injector {
	return &Injector{doc: doc, sanitizer: sanitizer}
}

// Document returns the target document.
func (i *Injector) Document() *Document {
	return i.doc
}

// Inject sanitizes plaintext and assigns it as the srcdoc of the iframe
// with id. It returns the written document.
func (i *Injector) Inject(id string, plaintext []byte) (string, error) {
	el, ok := i.doc.Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !el.IsFrame() {
		return "", fmt.Errorf("%w: %s", ErrNotFrame, id)
	}

	text, err := sanitize.Normalize(plaintext)
	if err != nil {
		return "", fmt.Errorf("inject %s: %w", id, err)
	}

	safe, err := sanitize.Clean(i.sanitizer, text)
	if err != nil {
		return "", fmt.Errorf("inject %s: %w", id, err)
	}

	if err := i.doc.setSrcdoc(id, safe); err != nil {
		return "", err
	}
	return safe, nil
}
