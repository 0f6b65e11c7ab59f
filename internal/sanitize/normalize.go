package sanitize

import (
	"errors"
	"fmt"
	"mime"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// MaxPayloadSize bounds a decoded payload at 10MB.
const MaxPayloadSize = 10 * 1024 * 1024

var ErrTooLarge = errors.New("payload too large")

// Normalize returns raw as UTF-8. Content is not classified here: bytes
// that look like a binary format still go through the sanitizer, which
// makes any input inert.
func Normalize(raw []byte) (string, error) {
	if len(raw) > MaxPayloadSize {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, len(raw))
	}
	if len(raw) == 0 {
		return "", nil
	}
	return ToUTF8(raw), nil
}

// ToUTF8 transcodes raw to UTF-8 when it is not already valid UTF-8. A
// charset declared by a byte order mark wins over statistical detection.
// Undecodable input falls back to lossy conversion.
func ToUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}

	name := SniffedCharset(raw)
	if name == "" {
		name = DetectCharset(raw)
	}
	if enc, _ := charset.Lookup(name); enc != nil {
		if out, err := enc.NewDecoder().Bytes(raw); err == nil {
			return string(out)
		}
	}

	return string([]rune(string(raw)))
}

// SniffedCharset returns the charset parameter mimetype reports for raw,
// or "" when the signature carries none.
func SniffedCharset(raw []byte) string {
	_, params, err := mime.ParseMediaType(mimetype.Detect(raw).String())
	if err != nil {
		return ""
	}
	return params["charset"]
}

// DetectCharset returns the most likely charset name of raw.
func DetectCharset(raw []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil || result == nil {
		return "utf-8"
	}
	return result.Charset
}
