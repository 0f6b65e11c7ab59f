package keyholder

import (
	"github.com/GriffinCanCode/keyx/internal/cipher"
	"github.com/GriffinCanCode/keyx/internal/protocol"
)

type decisionKind int

const (
	decideDrop decisionKind = iota
	decideStore
	decideEmit
	decideDecrypt
)

// decision is what the loop should do with one request.
type decision struct {
	kind     decisionKind
	key      []byte
	response protocol.Response
	render   *protocol.RenderPayload
	reason   string
}

// decide maps a request and the key state to a decision. It has no side
// effects.
func decide(hasKey bool, req protocol.Request) decision {
	switch req.Action {
	case protocol.ActionSaveKey:
		return decision{kind: decideStore, key: req.Key}

	case protocol.ActionRender:
		p := req.Render
		if p == nil || p.ID == "" {
			return decision{kind: decideDrop, reason: "render without id"}
		}

		if p.IsPublic {
			plaintext, err := protocol.DecodePublic(p.Data)
			if err != nil {
				return decision{kind: decideEmit, response: failed(p.ID, protocol.ReasonDecodeFailed)}
			}
			return decision{kind: decideEmit, response: protocol.Response{
				Action: protocol.ActionRender,
				ID:     p.ID,
				Data:   string(plaintext),
			}}
		}

		if !hasKey {
			return decision{kind: decideDrop, reason: "no key"}
		}
		if !cipher.IsEnvelope(p.Data) {
			return decision{kind: decideDrop, reason: "not an envelope"}
		}
		return decision{kind: decideDecrypt, render: p}

	default:
		return decision{kind: decideDrop, reason: "unknown action"}
	}
}

func failed(id, reason string) protocol.Response {
	return protocol.Response{Action: protocol.ActionRenderFailed, ID: id, Error: reason}
}
