package cipher

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/tink-crypto/tink-go/v2/aead/subtle"
)

// ErrDecrypt hides the reason authentication failed.
var ErrDecrypt = errors.New("decryption failed")

// Decrypter is the decrypt capability used by the key holder and the
// dispatcher's direct path.
type Decrypter interface {
	Decrypt(ctx context.Context, data string, keyMaterial []byte) (string, error)
}

// AESGCMSIV seals and opens envelopes with tink's AES-GCM-SIV.
type AESGCMSIV struct {
	associatedData []byte
}

// NewAESGCMSIV returns the default AEAD with no associated data.
func NewAESGCMSIV() *AESGCMSIV {
	return &AESGCMSIV{}
}

// WithAssociatedData binds every envelope to ad.
func (a *AESGCMSIV) WithAssociatedData(ad []byte) *AESGCMSIV {
	a.associatedData = append([]byte(nil), ad...)
	return a
}

// Decrypt opens data with keyMaterial. It returns when the context is done
// even if the primitive has not.
func (a *AESGCMSIV) Decrypt(ctx context.Context, data string, keyMaterial []byte) (string, error) {
	env, err := ParseEnvelope(data)
	if err != nil {
		return "", err
	}

	key, err := ParseKey(keyMaterial)
	if err != nil {
		return "", err
	}

	return Within(ctx, func() (string, error) {
		defer zero(key)

		primitive, err := subtle.NewAESGCMSIV(key)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}

		pt, err := primitive.Decrypt(env.raw(), a.associatedData)
		if err != nil {
			return "", ErrDecrypt
		}
		return string(pt), nil
	})
}

// Seal encrypts plaintext into an envelope string.
func (a *AESGCMSIV) Seal(plaintext, keyMaterial []byte) (string, error) {
	key, err := ParseKey(keyMaterial)
	if err != nil {
		return "", err
	}
	defer zero(key)

	primitive, err := subtle.NewAESGCMSIV(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	out, err := primitive.Encrypt(plaintext, a.associatedData)
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	if len(out) <= NonceSize {
		return "", fmt.Errorf("seal: short ciphertext")
	}

	return Envelope{Nonce: out[:NonceSize], Ciphertext: out[NonceSize:]}.String(), nil
}

// GenerateKey returns fresh 256-bit key material.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	defer zero(key)
	return EncodeKey(key), nil
}
