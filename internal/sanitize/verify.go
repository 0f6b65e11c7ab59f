package sanitize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
)

var ErrUnsafeOutput = errors.New("sanitized output is not inert")

const lower = "translate(normalize-space(.), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz')"

// Script vectors that must never survive sanitization.
var inertChecks = []struct {
	name string
	expr string
}{
	{name: "script element", expr: "//script"},
	{name: "event handler", expr: "//*[@*[starts-with(name(), 'on') and name() != 'open']]"},
	{name: "javascript url", expr: "//*[@*[starts-with(" + lower + ", 'javascript:')]]"},
	{name: "vbscript url", expr: "//*[@*[starts-with(" + lower + ", 'vbscript:')]]"},
}

// VerifyInert parses sanitized output and refuses it if any script vector
// is still present.
func VerifyInert(html string) error {
	if html == "" {
		return nil
	}

	root, err := htmlquery.Parse(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("%w: parse: %v", ErrUnsafeOutput, err)
	}

	for _, check := range inertChecks {
		nodes, err := htmlquery.QueryAll(root, check.expr)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnsafeOutput, check.name, err)
		}
		if len(nodes) > 0 {
			return fmt.Errorf("%w: %s", ErrUnsafeOutput, check.name)
		}
	}

	return nil
}

// Clean sanitizes, then verifies the result.
func Clean(s Sanitizer, html string) (string, error) {
	out := s.Sanitize(html)
	if err := VerifyInert(out); err != nil {
		return "", err
	}
	return out, nil
}
