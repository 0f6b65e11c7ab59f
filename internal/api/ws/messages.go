package ws

import (
	"context"
	"errors"
	"fmt"

	"github.com/GriffinCanCode/keyx/internal/protocol"
	"github.com/GriffinCanCode/keyx/internal/render"
)

var errUnknownAction = errors.New("unknown action")

// handle applies one client message to the session.
func (s *session) handle(ctx context.Context, env protocol.Envelope) error {
	switch env.Action {
	case protocol.ActionSaveKey:
		material, err := env.KeyMaterial()
		if err != nil {
			return s.reject(ctx, "", err)
		}
		return s.pipeline.SaveKey(ctx, material)

	case protocol.ActionMount, protocol.ActionUpdate:
		var p protocol.ElementPayload
		if err := env.Bind(&p); err != nil {
			return s.reject(ctx, "", err)
		}
		if _, err := s.pipeline.Document().Upsert(p.Tag, p.ID, p.Attributes()); err != nil {
			return s.reject(ctx, p.ID, err)
		}
		if env.Action == protocol.ActionMount {
			return s.pipeline.Mount(ctx, p.ID)
		}
		return s.pipeline.Update(ctx, p.ID)

	case protocol.ActionRender:
		var call protocol.RenderCall
		if err := env.Bind(&call); err != nil {
			return s.reject(ctx, "", err)
		}
		var key []byte
		if call.Key != "" {
			key = []byte(call.Key)
		}
		return s.pipeline.Render(ctx, call.ID, key)

	case protocol.ActionPing:
		s.enqueue(ctx, protocol.Response{Action: protocol.ActionPong})
		return nil

	default:
		return s.reject(ctx, "", fmt.Errorf("%w: %s", errUnknownAction, env.Action))
	}
}

func (s *session) reject(ctx context.Context, elementID string, err error) error {
	msg := "invalid message"
	if errors.Is(err, errUnknownAction) {
		msg = "unknown action"
	}
	s.enqueue(ctx, errorResponse(elementID, msg))
	return err
}

func errorResponse(elementID, msg string) protocol.Response {
	return protocol.Response{Action: protocol.ActionError, ID: elementID, Error: msg}
}

// outcomeResponse maps a render outcome to its client message. Only the
// sanitized document is ever sent.
func outcomeResponse(o render.Outcome) protocol.Response {
	if o.Status == render.StatusRendered {
		return protocol.Response{Action: protocol.ActionRender, ID: o.ElementID, Data: o.Document}
	}
	return protocol.Response{Action: protocol.ActionRenderFailed, ID: o.ElementID, Error: o.Reason}
}
