package commands

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/keyx/internal/cipher"
)

func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestKeygen(t *testing.T) {
	out, err := execute(t, NewKeygenCommand(), "")
	require.NoError(t, err)

	key, err := cipher.ParseKey([]byte(out))
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestEncryptRoundTrip(t *testing.T) {
	key, err := cipher.GenerateKey()
	require.NoError(t, err)

	out, err := execute(t, NewEncryptCommand(), "<p>secret</p>", "--key", key)
	require.NoError(t, err)
	assert.True(t, cipher.IsEnvelope(out))

	plaintext, err := cipher.NewAESGCMSIV().Decrypt(context.Background(), out, []byte(key))
	require.NoError(t, err)
	assert.Equal(t, "<p>secret</p>", plaintext)
}

func TestEncryptKeyFromEnvAndFile(t *testing.T) {
	key, err := cipher.GenerateKey()
	require.NoError(t, err)
	t.Setenv(KeyEnvVar, key)

	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<b>file</b>"), 0o600))

	out, err := execute(t, NewEncryptCommand(), "", "--in", path, "--id", "report")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `<iframe id="report" data="`))
	assert.NotContains(t, out, `public=`)
}

func TestEncryptWithoutKey(t *testing.T) {
	t.Setenv(KeyEnvVar, "")

	_, err := execute(t, NewEncryptCommand(), "x")
	assert.ErrorContains(t, err, "no key")
}

func TestEncode(t *testing.T) {
	out, err := execute(t, NewEncodeCommand(), "<p>hi</p>")
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("<p>hi</p>")), out)

	out, err = execute(t, NewEncodeCommand(), "<p>hi</p>", "--id", `a"b`)
	require.NoError(t, err)
	assert.Contains(t, out, `id="a&#34;b" public="1"`)
}

func TestDeriveIsDeterministicWithSalt(t *testing.T) {
	t.Setenv(PassphraseEnvVar, "correct horse battery staple")
	salt := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef"))
	args := []string{"--salt", salt, "--memory", "1024", "--time", "1", "--threads", "1"}

	first, err := execute(t, NewDeriveCommand(), "", append(args, "--key-only")...)
	require.NoError(t, err)
	second, err := execute(t, NewDeriveCommand(), "", append(args, "--key-only")...)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	full, err := execute(t, NewDeriveCommand(), "", args...)
	require.NoError(t, err)

	var derived cipher.DerivedKey
	require.NoError(t, json.Unmarshal([]byte(full), &derived))
	assert.Equal(t, first, derived.Material)
	assert.Equal(t, salt, derived.Salt)
	assert.Equal(t, uint32(1024), derived.Params.Memory)
}

func TestDeriveRejectsBadSalt(t *testing.T) {
	t.Setenv(PassphraseEnvVar, "pass")

	_, err := execute(t, NewDeriveCommand(), "", "--salt", "***")
	assert.ErrorContains(t, err, "invalid salt")
}
