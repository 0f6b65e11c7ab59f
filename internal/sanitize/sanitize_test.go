package sanitize

import (
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hostile = []string{
	"<img src=x onerror=alert(1)>",
	"<script>alert(1)</script><b>bold</b>",
	`<a href="javascript:alert(1)">click</a>`,
	`<a href=" JaVaScRiPt:alert(1)">click</a>`,
	`<svg onload=alert(1)><circle r="1"/></svg>`,
	`<iframe srcdoc="<script>alert(1)</script>"></iframe>`,
	`<p style="background:url(javascript:alert(1))">styled</p>`,
	`<body onload="alert(1)"><p>body</p></body>`,
}

func policies(t *testing.T) map[string]*Policy {
	t.Helper()
	list, err := LoadAllowList(filepath.Join("testdata", "allow.yaml"))
	require.NoError(t, err)
	fromFile, err := FromAllowList(list)
	require.NoError(t, err)

	return map[string]*Policy{
		PolicyUGC:       UGC(),
		PolicyStrict:    Strict(),
		PolicyAllowList: fromFile,
	}
}

func TestSanitizeStripsEventHandlers(t *testing.T) {
	out := UGC().Sanitize("<img src=x onerror=alert(1)>")

	assert.Contains(t, out, "<img")
	assert.NotContains(t, out, "onerror")
	assert.NotContains(t, out, "alert")
	assert.NoError(t, VerifyInert(out))
}

func TestSanitizePlainText(t *testing.T) {
	assert.Equal(t, "hello", UGC().Sanitize("hello"))
	assert.Equal(t, "hello", Strict().Sanitize("<p>hello</p>"))
}

func TestSanitizeHostileInputIsInert(t *testing.T) {
	for name, policy := range policies(t) {
		for _, input := range hostile {
			t.Run(name+"/"+input, func(t *testing.T) {
				out, err := Clean(policy, input)
				require.NoError(t, err)
				assert.NotContains(t, strings.ToLower(out), "<script")
				assert.NotContains(t, strings.ToLower(out), "javascript:")
			})
		}
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := append([]string{
		"hello",
		"<p>a &amp; b</p>",
		`<p title="x &quot; y">quoted</p>`,
		"<div><p>unclosed",
		`<a href="https://example.com/page?q=1&amp;r=2">link</a>`,
		"<ul><li>one</li><li>two</li></ul>",
	}, hostile...)

	for name, policy := range policies(t) {
		for _, input := range inputs {
			t.Run(name+"/"+input, func(t *testing.T) {
				once := policy.Sanitize(input)
				assert.Equal(t, once, policy.Sanitize(once))
			})
		}
	}
}

func TestVerifyInert(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		wantErr bool
	}{
		{name: "empty", html: ""},
		{name: "text", html: "hello"},
		{name: "details open is not a handler", html: "<details open><summary>s</summary></details>"},
		{name: "script", html: "<p>x</p><script>alert(1)</script>", wantErr: true},
		{name: "handler", html: `<div onclick="x()">d</div>`, wantErr: true},
		{name: "javascript url", html: `<a href="  JAVASCRIPT:alert(1)">a</a>`, wantErr: true},
		{name: "vbscript url", html: `<a href="vbscript:msgbox">a</a>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyInert(tt.html)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsafeOutput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadAllowList(t *testing.T) {
	tests := []struct {
		file     string
		elements []string
	}{
		{file: "allow.yaml", elements: []string{"p", "b", "i", "em", "strong", "a", "ul", "li", "img"}},
		{file: "allow.toml", elements: []string{"p", "b", "a"}},
		{file: "allow.json", elements: []string{"p", "em"}},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			list, err := LoadAllowList(filepath.Join("testdata", tt.file))
			require.NoError(t, err)
			assert.Equal(t, tt.elements, list.Elements)
		})
	}

	_, err := LoadAllowList(filepath.Join("testdata", "unsafe.yaml"))
	assert.ErrorIs(t, err, ErrUnsafeAllowList)

	_, err = LoadAllowList(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseAllowList(".ini", []byte("x=1"))
	assert.Error(t, err)
}

func TestAllowListPolicy(t *testing.T) {
	list, err := LoadAllowList(filepath.Join("testdata", "allow.toml"))
	require.NoError(t, err)
	policy, err := FromAllowList(list)
	require.NoError(t, err)

	out := policy.Sanitize(`<p><a href="https://example.com">ok</a><i>gone</i></p>`)
	assert.Contains(t, out, `href="https://example.com"`)
	assert.NotContains(t, out, "<i>")
	assert.Contains(t, out, "gone")
}

func TestAllowListValidate(t *testing.T) {
	tests := []struct {
		name string
		list AllowList
	}{
		{name: "empty", list: AllowList{}},
		{name: "script element", list: AllowList{Elements: []string{"SCRIPT"}}},
		{name: "handler attribute", list: AllowList{Elements: []string{"p"}, Attributes: []AttrRule{{Names: []string{"onClick"}}}}},
		{name: "style attribute", list: AllowList{Elements: []string{"p"}, Attributes: []AttrRule{{Names: []string{"style"}}}}},
		{name: "attribute on iframe", list: AllowList{Elements: []string{"p"}, Attributes: []AttrRule{{Names: []string{"src"}, On: []string{"iframe"}}}}},
		{name: "javascript scheme", list: AllowList{Elements: []string{"a"}, URLSchemes: []string{"JavaScript"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.list.Validate(), ErrUnsafeAllowList)
		})
	}
}

func TestNew(t *testing.T) {
	p, err := New("", "")
	require.NoError(t, err)
	assert.Equal(t, PolicyUGC, p.Name())

	p, err = New(PolicyStrict, "")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p.Name())

	p, err = New(PolicyAllowList, filepath.Join("testdata", "allow.json"))
	require.NoError(t, err)
	assert.Equal(t, PolicyAllowList, p.Name())

	_, err = New(PolicyAllowList, "")
	assert.Error(t, err)

	_, err = New("lenient", "")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	text, err := Normalize([]byte("<p>hello</p>"))
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", text)

	text, err = Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, text)

	for _, raw := range []string{
		"GIF89a is an image format",
		"%PDF-1.7 notes for the meeting",
		"MZ was a DOS signature",
	} {
		text, err = Normalize([]byte(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, raw, text)
	}

	// PNG signature: not UTF-8, still normalized rather than rejected.
	text, err = Normalize([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01"))
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(text))

	_, err = Normalize(make([]byte, MaxPayloadSize+1))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestToUTF8(t *testing.T) {
	assert.Equal(t, "héllo", ToUTF8([]byte("héllo")))

	// Whatever charset is detected, the result is valid UTF-8 and keeps ASCII.
	latin1 := []byte("caf\xe9 au lait, cr\xe8me br\xfbl\xe9e, na\xefve fa\xe7ade")
	out := ToUTF8(latin1)
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, " au lait")

	// UTF-16LE with a byte order mark.
	utf16 := []byte{0xff, 0xfe, 'h', 0, 'i', 0}
	assert.Equal(t, "utf-16le", SniffedCharset(utf16))
	assert.Contains(t, ToUTF8(utf16), "hi")
}
