package protocol

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// Action names a message kind.
type Action string

const (
	ActionSaveKey      Action = "saveKey"
	ActionKeySaved     Action = "keySaved"
	ActionRender       Action = "render"
	ActionRenderFailed Action = "renderFailed"

	// Session actions used by the WebSocket transport.
	ActionMount  Action = "mount"
	ActionUpdate Action = "update"
	ActionPing   Action = "ping"
	ActionPong   Action = "pong"
	ActionError  Action = "error"
)

// Failure reason codes. They never describe why authentication failed.
const (
	ReasonDecodeFailed  = "decode_failed"
	ReasonDecryptFailed = "decrypt_failed"
	ReasonTimeout       = "timeout"
	ReasonUnsafe        = "unsafe_output"
	ReasonNotFound      = "not_found"
	ReasonExpired       = "expired"
)

var ErrInvalidMessage = errors.New("invalid message")

// Flag is a boolean that also accepts the "1" attribute form.
type Flag bool

// UnmarshalJSON accepts true/false, "1"/"0" and "true"/"false".
func (f *Flag) UnmarshalJSON(b []byte) error {
	switch string(bytes.TrimSpace(b)) {
	case `true`, `"1"`, `"true"`, `1`:
		*f = true
	case `false`, `"0"`, `"false"`, `""`, `0`, `null`:
		*f = false
	default:
		return fmt.Errorf("%w: bad flag %s", ErrInvalidMessage, b)
	}
	return nil
}

// RenderPayload is the body of a render request sent to the key holder.
type RenderPayload struct {
	ID       string `json:"id"`
	Data     string `json:"data"`
	IsPublic Flag   `json:"isPublic"`
}

// ElementPayload is the body of a session mount or update. It carries the
// content element attributes owned by the hosting page.
type ElementPayload struct {
	ID     string `json:"id"`
	Tag    string `json:"tag,omitempty"`
	Public Flag   `json:"public"`
	Data   string `json:"data"`
}

// Attributes returns the element attributes in DOM form.
func (p ElementPayload) Attributes() map[string]string {
	attrs := map[string]string{"data": p.Data}
	if p.Public {
		attrs["public"] = "1"
	}
	return attrs
}

// RenderCall is the body of a session render. Key is optional.
type RenderCall struct {
	ID  string `json:"id"`
	Key string `json:"key,omitempty"`
}

// Request is a message addressed to the key holder.
type Request struct {
	Action Action
	// Key is set for saveKey. The holder takes ownership of the slice.
	Key    []byte
	Render *RenderPayload
}

// SaveKey builds a saveKey request.
func SaveKey(material []byte) Request {
	return Request{Action: ActionSaveKey, Key: material}
}

// Render builds a render request.
func Render(id, data string, public bool) Request {
	return Request{
		Action: ActionRender,
		Render: &RenderPayload{ID: id, Data: data, IsPublic: Flag(public)},
	}
}

// Response is a message emitted by the key holder or sent to a session client.
type Response struct {
	Action Action `json:"action"`
	ID     string `json:"id,omitempty"`
	Data   string `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Envelope is the wire form shared by every action.
type Envelope struct {
	Action  Action          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a wire envelope.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if env.Action == "" {
		return Envelope{}, fmt.Errorf("%w: missing action", ErrInvalidMessage)
	}
	return env, nil
}

// DecodeRequest parses a key holder request from its wire form.
func DecodeRequest(raw []byte) (Request, error) {
	env, err := Decode(raw)
	if err != nil {
		return Request{}, err
	}

	switch env.Action {
	case ActionSaveKey:
		material, err := env.KeyMaterial()
		if err != nil {
			return Request{}, err
		}
		return SaveKey(material), nil
	case ActionRender:
		var p RenderPayload
		if err := env.Bind(&p); err != nil {
			return Request{}, err
		}
		return Request{Action: ActionRender, Render: &p}, nil
	default:
		return Request{Action: env.Action}, nil
	}
}

// KeyMaterial extracts opaque key material. A JSON string yields its
// contents; any other JSON value is kept verbatim.
func (e Envelope) KeyMaterial() ([]byte, error) {
	if len(e.Payload) == 0 {
		return nil, nil
	}
	var s string
	if err := sonic.Unmarshal(e.Payload, &s); err == nil {
		return []byte(s), nil
	}
	return append([]byte(nil), e.Payload...), nil
}

// Bind decodes the payload into v.
func (e Envelope) Bind(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: missing payload for %s", ErrInvalidMessage, e.Action)
	}
	if err := sonic.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrInvalidMessage, e.Action, err)
	}
	return nil
}

// Encode renders a response in its wire form.
func Encode(resp Response) ([]byte, error) {
	return sonic.Marshal(resp)
}

// DecodePublic decodes a public data attribute. Like atob it tolerates
// embedded whitespace; unpadded input is accepted too.
func DecodePublic(data string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			return -1
		}
		return r
	}, data)

	out, err := base64.StdEncoding.DecodeString(compact)
	if err == nil {
		return out, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(compact); rawErr == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("decode public data: %w", err)
}
