package sanitize

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

var ErrUnsafeAllowList = errors.New("unsafe allow-list")

// Elements and attributes no allow-list may permit.
var (
	forbiddenElements = map[string]bool{
		"script": true, "style": true, "iframe": true, "frame": true,
		"frameset": true, "object": true, "embed": true, "base": true,
		"meta": true, "link": true, "template": true,
	}
	forbiddenAttributes = map[string]bool{
		"style": true, "srcdoc": true, "formaction": true,
	}
	forbiddenSchemes = map[string]bool{
		"javascript": true, "vbscript": true, "data": true,
	}
)

// AttrRule allows attributes on some elements, or globally when On is empty.
type AttrRule struct {
	Names []string `json:"names" yaml:"names" toml:"names"`
	On    []string `json:"on,omitempty" yaml:"on,omitempty" toml:"on,omitempty"`
}

// AllowList is a file-defined sanitization policy.
type AllowList struct {
	Elements          []string   `json:"elements" yaml:"elements" toml:"elements"`
	Attributes        []AttrRule `json:"attributes" yaml:"attributes" toml:"attributes"`
	URLSchemes        []string   `json:"url_schemes" yaml:"url_schemes" toml:"url_schemes"`
	AllowRelativeURLs bool       `json:"allow_relative_urls" yaml:"allow_relative_urls" toml:"allow_relative_urls"`
}

// LoadAllowList reads a YAML, TOML or JSON allow-list chosen by extension.
func LoadAllowList(path string) (AllowList, error) {
	if path == "" {
		return AllowList{}, errors.New("allow-list path required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return AllowList{}, fmt.Errorf("read allow-list: %w", err)
	}

	list, err := ParseAllowList(filepath.Ext(path), data)
	if err != nil {
		return AllowList{}, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// ParseAllowList decodes an allow-list in the format named by ext.
func ParseAllowList(ext string, data []byte) (AllowList, error) {
	var (
		list AllowList
		err  error
	)

	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &list)
	case "toml":
		err = toml.Unmarshal(data, &list)
	case "json":
		err = sonic.Unmarshal(data, &list)
	default:
		return AllowList{}, fmt.Errorf("unsupported allow-list format %q", ext)
	}
	if err != nil {
		return AllowList{}, fmt.Errorf("parse allow-list: %w", err)
	}

	return list, list.Validate()
}

// Validate refuses lists that would let script execution through.
func (a AllowList) Validate() error {
	if len(a.Elements) == 0 {
		return fmt.Errorf("%w: no elements allowed", ErrUnsafeAllowList)
	}

	for _, el := range a.Elements {
		if forbiddenElements[strings.ToLower(el)] {
			return fmt.Errorf("%w: element %q", ErrUnsafeAllowList, el)
		}
	}

	for _, rule := range a.Attributes {
		for _, on := range rule.On {
			if forbiddenElements[strings.ToLower(on)] {
				return fmt.Errorf("%w: element %q", ErrUnsafeAllowList, on)
			}
		}
		for _, name := range rule.Names {
			n := strings.ToLower(name)
			if strings.HasPrefix(n, "on") || forbiddenAttributes[n] {
				return fmt.Errorf("%w: attribute %q", ErrUnsafeAllowList, name)
			}
		}
	}

	for _, scheme := range a.URLSchemes {
		if forbiddenSchemes[strings.ToLower(scheme)] {
			return fmt.Errorf("%w: url scheme %q", ErrUnsafeAllowList, scheme)
		}
	}

	return nil
}
