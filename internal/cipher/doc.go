// Package cipher implements the decrypt capability consumed by the render
// pipeline and the sealing side that produces private payloads.
//
// A private payload is an envelope of two base64 segments joined by a colon:
//
//	base64(nonce) ":" base64(ciphertext || tag)
//
// The AEAD is AES-GCM-SIV from tink-go, keyed by a single 16 or 32 byte key.
// Key material travels as base64 text and is decoded only at the point of use.
//
// Key derivation from a passphrase uses Argon2id with the parameters stored
// alongside the salt so a derived key can be reproduced later.
//
// Example Usage:
//
//	aead := cipher.NewAESGCMSIV()
//	data, err := aead.Seal([]byte("<p>hello</p>"), key)
//	plaintext, err := aead.Decrypt(ctx, data, key)
package cipher
