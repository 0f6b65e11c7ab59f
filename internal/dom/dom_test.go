package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/keyx/internal/sanitize"
)

const page = `<!doctype html>
<html><body>
  <iframe id="pub" public="1" data="aGVsbG8="></iframe>
  <iframe id="priv" data="bm9uY2U=:Y3Q="></iframe>
  <div id="note" public="1" data="aGk="></div>
  <iframe id="plain"></iframe>
  <iframe id="pub" public="1" data="ZHVw"></iframe>
</body></html>`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(page))
	require.NoError(t, err)

	assert.Equal(t, []string{"pub", "priv", "note"}, doc.IDs())

	pub, ok := doc.Lookup("pub")
	require.True(t, ok)
	assert.Equal(t, Public, pub.Visibility())
	assert.Equal(t, "aGVsbG8=", pub.Data())
	assert.True(t, pub.IsFrame())

	priv, ok := doc.Lookup("priv")
	require.True(t, ok)
	assert.Equal(t, Private, priv.Visibility())

	note, ok := doc.Lookup("note")
	require.True(t, ok)
	assert.False(t, note.IsFrame())

	_, ok = doc.Lookup("plain")
	assert.False(t, ok, "elements without data are not content elements")
}

func TestVisibility(t *testing.T) {
	tests := []struct {
		value string
		want  Visibility
	}{
		{"1", Public},
		{"", Private},
		{"0", Private},
		{"true", Private},
	}

	for _, tt := range tests {
		el := Element{Attributes: map[string]string{AttrPublic: tt.value}}
		assert.Equal(t, tt.want, el.Visibility(), "public=%q", tt.value)
	}
}

func TestLookupReturnsSnapshot(t *testing.T) {
	doc, err := Parse([]byte(page))
	require.NoError(t, err)

	el, _ := doc.Lookup("pub")
	el.Attributes[AttrData] = "tampered"

	again, _ := doc.Lookup("pub")
	assert.Equal(t, "aGVsbG8=", again.Data())
}

func TestUpsert(t *testing.T) {
	doc := NewDocument()

	mounted, err := doc.Upsert("iframe", "a", map[string]string{AttrPublic: "1", AttrData: "aGk="})
	require.NoError(t, err)
	assert.True(t, mounted)

	inj := NewInjector(doc, sanitize.UGC())
	_, err = inj.Inject("a", []byte("hi"))
	require.NoError(t, err)

	mounted, err = doc.Upsert("iframe", "a", map[string]string{AttrData: "bmV3", AttrSrcdoc: "<script>x</script>"})
	require.NoError(t, err)
	assert.False(t, mounted)

	el, _ := doc.Lookup("a")
	assert.Equal(t, Private, el.Visibility(), "update replaces attributes")
	assert.Equal(t, "bmV3", el.Data())

	srcdoc, _ := doc.Srcdoc("a")
	assert.Equal(t, "hi", srcdoc, "update cannot write srcdoc")

	_, err = doc.Upsert("iframe", "", nil)
	assert.ErrorIs(t, err, ErrNoID)
	assert.Equal(t, []string{"a"}, doc.IDs())
}

func TestRemove(t *testing.T) {
	doc, err := Parse([]byte(page))
	require.NoError(t, err)

	assert.True(t, doc.Remove("priv"))
	assert.False(t, doc.Remove("priv"))
	assert.Equal(t, []string{"pub", "note"}, doc.IDs())
}

func TestInject(t *testing.T) {
	doc, err := Parse([]byte(page))
	require.NoError(t, err)
	inj := NewInjector(doc, sanitize.UGC())

	out, err := inj.Inject("pub", []byte("<img src=x onerror=alert(1)>"))
	require.NoError(t, err)
	assert.NotContains(t, out, "onerror")

	srcdoc, ok := doc.Srcdoc("pub")
	require.True(t, ok)
	assert.Equal(t, out, srcdoc)

	markup, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, markup, "srcdoc=")
	assert.NotContains(t, markup, "onerror")
}

func TestInjectFailsClosed(t *testing.T) {
	doc, err := Parse([]byte(page))
	require.NoError(t, err)
	inj := NewInjector(doc, sanitize.UGC())

	_, err = inj.Inject("missing", []byte("x"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = inj.Inject("note", []byte("x"))
	assert.ErrorIs(t, err, ErrNotFrame)

	_, err = inj.Inject("priv", make([]byte, sanitize.MaxPayloadSize+1))
	assert.ErrorIs(t, err, sanitize.ErrTooLarge)

	_, err = NewInjector(doc, passthrough{}).Inject("priv", []byte(`<b onclick="x()">b</b>`))
	assert.ErrorIs(t, err, sanitize.ErrUnsafeOutput)

	_, ok := doc.Srcdoc("priv")
	assert.False(t, ok, "failed injections leave the frame blank")
}

func TestInjectSignatureLikeText(t *testing.T) {
	doc, err := Parse([]byte(page))
	require.NoError(t, err)
	inj := NewInjector(doc, sanitize.UGC())

	out, err := inj.Inject("priv", []byte("GIF89a is an image format"))
	require.NoError(t, err)
	assert.Equal(t, "GIF89a is an image format", out)

	srcdoc, ok := doc.Srcdoc("priv")
	require.True(t, ok)
	assert.Equal(t, out, srcdoc)
}

func TestParseTranscodes(t *testing.T) {
	doc, err := Parse([]byte("<iframe id=\"x\" data=\"caf\xe9\"></iframe>"))
	require.NoError(t, err)

	el, ok := doc.Lookup("x")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(el.Data(), "caf"))
}

// passthrough is a broken sanitizer used to prove verification still gates writes.
type passthrough struct{}

func (passthrough) Sanitize(html string) string { return html }
