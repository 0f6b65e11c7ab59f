package cipher

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	// SaltSize is the Argon2id salt length in bytes.
	SaltSize = 16
	// KeySize is the derived key length (AES-256).
	KeySize = 32
)

var ErrEmptyPassphrase = errors.New("passphrase cannot be empty")

// KDFParams are the Argon2id cost parameters.
type KDFParams struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
}

// DefaultKDFParams follows the RFC 9106 second recommended option.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Time:    3,
		Memory:  64 * 1024,
		Threads: 4,
	}
}

// DerivedKey is key material plus what is needed to derive it again.
type DerivedKey struct {
	Material string    `json:"key"`
	Salt     string    `json:"salt"`
	Params   KDFParams `json:"params"`
}

// NewSalt returns a random salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives key material from a passphrase with Argon2id.
func DeriveKey(passphrase, salt []byte, params KDFParams) (DerivedKey, error) {
	if len(passphrase) == 0 {
		return DerivedKey{}, ErrEmptyPassphrase
	}
	if len(salt) < 8 {
		return DerivedKey{}, fmt.Errorf("salt must be at least 8 bytes, got %d", len(salt))
	}

	key := argon2.IDKey(passphrase, salt, params.Time, params.Memory, params.Threads, KeySize)
	defer zero(key)

	return DerivedKey{
		Material: EncodeKey(key),
		Salt:     base64.StdEncoding.EncodeToString(salt),
		Params:   params,
	}, nil
}
