// Package ws provides the WebSocket render session.
//
// Each connection owns one key holder, one dispatcher and one document. The
// client mirrors its content elements into the session and receives
// sanitized documents back. Keys live only inside the session's key holder
// and are wiped when the connection closes.
//
// Message Types (Client → Server):
//   - saveKey: {"payload": "<key material>"}
//   - mount, update: {"payload": {"id", "tag", "public", "data"}}
//   - render: {"payload": {"id", "key"}}, key optional
//   - ping: keep-alive
//
// Message Types (Server → Client):
//   - keySaved: the key holder stored a key
//   - render: {"id", "data"} with the sanitized document
//   - renderFailed: {"id", "error"} with a coarse reason code
//   - pong, error
//
// Example Usage:
//
//	handler := ws.NewHandler(deps, ws.Config{}, metrics, logger)
//	router.GET("/ws", handler.HandleConnection)
package ws
