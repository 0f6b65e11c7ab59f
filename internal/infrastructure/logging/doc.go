// Package logging wraps uber/zap for the render service.
//
// Production builds emit JSON; development builds emit coloured console
// lines with stack traces on warnings.
//
// Components take a *Logger and derive a child with Named, so entries read
// "keyholder", "render", "ws" and so on. The field helpers (Element,
// Request, Session) keep identifier keys consistent across packages.
//
// Key material and decrypted content are never passed to a logger. Redacted
// logs only the length of a secret field.
//
//	logger := logging.NewDefault().Named("render")
//	logger.Warn("Decrypt failed", logging.Element(id), zap.Error(err))
package logging
