package render

import (
	"errors"
	"time"

	"github.com/GriffinCanCode/keyx/internal/dom"
	"github.com/GriffinCanCode/keyx/internal/shared/id"
)

var ErrClosed = errors.New("dispatcher is closed")

// Request is one render attempt for an element.
type Request struct {
	RequestID  id.RenderID
	ElementID  string
	Payload    string
	Visibility dom.Visibility

	path   string
	issued time.Time
}

// Result is a decrypt or decode result waiting for injection.
type Result struct {
	RequestID id.RenderID
	ElementID string
	Plaintext []byte
	Err       error
}

// Status of a finished request.
type Status string

const (
	StatusRendered Status = "rendered"
	StatusFailed   Status = "failed"
	StatusExpired  Status = "expired"
)

// Outcome reports how a request ended. Document holds the sanitized markup
// written to the frame when Status is rendered.
type Outcome struct {
	RequestID id.RenderID
	ElementID string
	Status    Status
	Reason    string
	Document  string
}
