// Package protocol defines the messages exchanged between the render
// dispatcher and the key holder, and their JSON wire form.
//
// Message Types (dispatcher → key holder):
//   - saveKey: payload is opaque key material
//   - render: payload is {id, data, isPublic}
//
// Message Types (key holder → dispatcher):
//   - keySaved: acknowledgement of saveKey
//   - render: {id, data} plaintext, only after a successful decode/decrypt
//   - renderFailed: {id, error} with a coarse reason code
//
// The same envelope shape carries the WebSocket session actions (mount,
// update, ping) so one codec serves both boundaries.
package protocol
