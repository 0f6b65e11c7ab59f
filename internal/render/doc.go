// Package render dispatches content element events to the decrypt pipeline.
//
// A Dispatcher is one goroutine draining an explicit event queue: mount and
// update notifications, explicit renders, key saves, key holder responses,
// direct decrypt completions and expiry ticks. It never decrypts on its own
// goroutine.
//
// Three paths lead to an injection:
//
//	fast    public data, base64 decoded on the loop
//	direct  a key supplied with Render, decrypted in a goroutine
//	holder  forwarded to the key holder, which owns the saved key
//
// The holder sees the dispatcher's request ID in the payload id field, so a
// response maps back to exactly one request. Per element the latest request
// wins; completions of superseded requests are discarded.
//
// Private requests issued before any key was saved are parked in the pending
// registry and re-sent when the holder acknowledges a key. They expire after
// the configured TTL.
package render
