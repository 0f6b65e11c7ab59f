// Package keyholder runs the isolated context that owns the symmetric key.
//
// A Holder is a single goroutine consuming an inbox of protocol requests.
// It holds at most one key, sealed in a memguard enclave, and performs
// decryption on behalf of the dispatcher. Nothing outside the holder ever
// sees the key: callers hand material in with saveKey and get plaintext back
// only after a successful decrypt.
//
// Message handling is split in two. decide is a pure function from (key
// present?, request) to a decision; the loop applies the decision by storing
// the key, emitting a response, or starting a decrypt goroutine.
//
// Fail-closed rules:
//   - private data is decrypted only when a key is held and the data
//     contains the envelope delimiter; otherwise the request is dropped
//     silently
//   - plaintext is emitted only after decryption succeeded
//   - a decrypt that outlives the timeout emits renderFailed with reason
//     "timeout"
package keyholder
