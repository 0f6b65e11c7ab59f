package render

import (
	"context"
	"errors"

	"github.com/GriffinCanCode/keyx/internal/cipher"
	"github.com/GriffinCanCode/keyx/internal/dom"
	"github.com/GriffinCanCode/keyx/internal/protocol"
	"github.com/GriffinCanCode/keyx/internal/sanitize"
)

// reasonError carries a coarse reason code reported by the key holder.
type reasonError string

func (e reasonError) Error() string {
	return "render failed: " + string(e)
}

// reasonOf maps an error to the reason code sent to clients.
func reasonOf(err error) string {
	var re reasonError
	switch {
	case errors.As(err, &re):
		return string(re)
	case errors.Is(err, context.DeadlineExceeded):
		return protocol.ReasonTimeout
	case errors.Is(err, dom.ErrNotFound), errors.Is(err, dom.ErrNotFrame):
		return protocol.ReasonNotFound
	case errors.Is(err, sanitize.ErrUnsafeOutput):
		return protocol.ReasonUnsafe
	case errors.Is(err, cipher.ErrMalformedEnvelope), errors.Is(err, sanitize.ErrTooLarge):
		return protocol.ReasonDecodeFailed
	default:
		return protocol.ReasonDecryptFailed
	}
}
