package cipher

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates the nonce segment from the ciphertext segment.
const Delimiter = ":"

// NonceSize is the AES-GCM-SIV nonce length in bytes.
const NonceSize = 12

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrInvalidKey        = errors.New("invalid key material")
)

// Envelope is a decoded private payload.
type Envelope struct {
	Nonce      []byte
	Ciphertext []byte
}

// IsEnvelope reports whether data has the shape of a private payload.
// It only looks for the delimiter; ParseEnvelope does the real validation.
func IsEnvelope(data string) bool {
	return strings.Contains(data, Delimiter)
}

// ParseEnvelope decodes a delimited payload.
func ParseEnvelope(data string) (Envelope, error) {
	nonceText, ctText, ok := strings.Cut(strings.TrimSpace(data), Delimiter)
	if !ok {
		return Envelope{}, fmt.Errorf("%w: missing delimiter", ErrMalformedEnvelope)
	}

	nonce, err := base64.StdEncoding.DecodeString(nonceText)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: nonce: %v", ErrMalformedEnvelope, err)
	}
	if len(nonce) != NonceSize {
		return Envelope{}, fmt.Errorf("%w: nonce is %d bytes", ErrMalformedEnvelope, len(nonce))
	}

	ct, err := base64.StdEncoding.DecodeString(ctText)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: ciphertext: %v", ErrMalformedEnvelope, err)
	}
	if len(ct) == 0 {
		return Envelope{}, fmt.Errorf("%w: empty ciphertext", ErrMalformedEnvelope)
	}

	return Envelope{Nonce: nonce, Ciphertext: ct}, nil
}

// String encodes the envelope back into its attribute form.
func (e Envelope) String() string {
	return base64.StdEncoding.EncodeToString(e.Nonce) + Delimiter +
		base64.StdEncoding.EncodeToString(e.Ciphertext)
}

// raw returns nonce || ciphertext, the layout tink expects.
func (e Envelope) raw() []byte {
	out := make([]byte, 0, len(e.Nonce)+len(e.Ciphertext))
	out = append(out, e.Nonce...)
	return append(out, e.Ciphertext...)
}

// ParseKey decodes base64 key material into raw key bytes.
func ParseKey(material []byte) ([]byte, error) {
	text := strings.TrimSpace(string(material))
	if text == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	key, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	switch len(key) {
	case 16, 32:
		return key, nil
	default:
		zero(key)
		return nil, fmt.Errorf("%w: %d byte key", ErrInvalidKey, len(key))
	}
}

// EncodeKey renders raw key bytes as key material.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
