package render

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/keyx/internal/cipher"
	"github.com/GriffinCanCode/keyx/internal/dom"
	"github.com/GriffinCanCode/keyx/internal/sanitize"
)

func TestPipelineEndToEnd(t *testing.T) {
	aead := cipher.NewAESGCMSIV()
	key, err := cipher.GenerateKey()
	require.NoError(t, err)

	data, err := aead.Seal([]byte(`<p>secret</p><script>alert(1)</script>`), []byte(key))
	require.NoError(t, err)

	doc, err := dom.Parse([]byte(page(frame("pub", "1", b64("<i>open</i>")), frame("priv", "0", data))))
	require.NoError(t, err)

	outcomes := make(chan Outcome, 4)
	p := Start(context.Background(), doc, Deps{
		Sanitizer: sanitize.UGC(),
		Decrypter: aead,
		Options:   Options{PendingTTL: time.Minute},
	}, WithNotify(func(o Outcome) { outcomes <- o }))
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.Render(ctx, "priv", nil))
	require.NoError(t, p.Mount(ctx, "pub"))
	require.NoError(t, p.SaveKey(ctx, []byte(key)))

	got := map[string]Outcome{}
	for i := 0; i < 2; i++ {
		select {
		case o := <-outcomes:
			got[o.ElementID] = o
		case <-time.After(3 * time.Second):
			t.Fatal("pipeline did not finish")
		}
	}

	assert.Equal(t, StatusRendered, got["pub"].Status)
	assert.Equal(t, StatusRendered, got["priv"].Status)

	srcdoc, _ := p.Document().Srcdoc("priv")
	assert.Equal(t, "<p>secret</p>", srcdoc)
	srcdoc, _ = p.Document().Srcdoc("pub")
	assert.Equal(t, "<i>open</i>", srcdoc)
}

func TestPipelineCloseStopsDispatcher(t *testing.T) {
	p := Start(context.Background(), dom.NewDocument(), Deps{
		Sanitizer: sanitize.UGC(),
		Decrypter: cipher.NewAESGCMSIV(),
	})
	p.Close()

	assert.ErrorIs(t, p.Mount(context.Background(), "a"), ErrClosed)
}
