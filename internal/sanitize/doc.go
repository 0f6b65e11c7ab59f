// Package sanitize turns decoded or decrypted payloads into HTML that is safe
// to use as an iframe document.
//
// It is built on:
//   - bluemonday: allow-list sanitization (ugc, strict, or file-defined)
//   - mimetype: reads a charset declared by a byte order mark
//   - chardet + x/net/html/charset: transcodes legacy encodings to UTF-8
//   - htmlquery: XPath check that sanitized output carries no script vectors
//
// Sanitization never returns an error; it strips. Verification is a second,
// independent gate: output that still contains a script element, an event
// handler attribute, or a javascript: URL is refused.
package sanitize
