package commands

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/GriffinCanCode/keyx/internal/sanitize"
)

const (
	// PassphraseEnvVar supplies the passphrase non-interactively.
	PassphraseEnvVar = "KEYX_PASSPHRASE"
	// KeyEnvVar supplies key material when --key is absent.
	KeyEnvVar = "KEYX_KEY"
)

// readInput reads the file named by path, or the command's stdin for "" and "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, sanitize.MaxPayloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if len(data) > sanitize.MaxPayloadSize {
		return nil, fmt.Errorf("input exceeds %d bytes", sanitize.MaxPayloadSize)
	}
	return data, nil
}

// writeValue prints a data attribute value, or a whole iframe when id is set.
func writeValue(cmd *cobra.Command, id string, public bool, value string) error {
	out := cmd.OutOrStdout()
	if id == "" {
		_, err := fmt.Fprintln(out, value)
		return err
	}

	attrs := ""
	if public {
		attrs = ` public="1"`
	}
	_, err := fmt.Fprintf(out, "<iframe id=\"%s\"%s data=\"%s\"></iframe>\n", html.EscapeString(id), attrs, html.EscapeString(value))
	return err
}

// keyMaterial resolves --key or the KEYX_KEY environment variable.
func keyMaterial(flag string) ([]byte, error) {
	if flag != "" {
		return []byte(flag), nil
	}
	if env := os.Getenv(KeyEnvVar); env != "" {
		return []byte(env), nil
	}
	return nil, fmt.Errorf("no key: pass --key or set %s", KeyEnvVar)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

func getPassphraseWithConfirm(cmd *cobra.Command, confirm bool) ([]byte, error) {
	if env := os.Getenv(PassphraseEnvVar); env != "" {
		return []byte(env), nil
	}

	passphrase, err := readPassword(cmd, "Passphrase: ")
	if err != nil {
		return nil, err
	}
	if !confirm {
		return passphrase, nil
	}

	again, err := readPassword(cmd, "Confirm passphrase: ")
	if err != nil {
		zeroBytes(passphrase)
		return nil, err
	}
	defer zeroBytes(again)

	if !bytes.Equal(passphrase, again) {
		zeroBytes(passphrase)
		return nil, fmt.Errorf("passphrases do not match")
	}
	return passphrase, nil
}

func readPassword(cmd *cobra.Command, prompt string) ([]byte, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	defer fmt.Fprintln(cmd.ErrOrStderr())

	if term.IsTerminal(int(os.Stdin.Fd())) {
		return term.ReadPassword(int(os.Stdin.Fd()))
	}

	tty, err := os.Open("/dev/tty")
	if err != nil {
		return nil, fmt.Errorf("cannot read passphrase: no terminal available, set %s", PassphraseEnvVar)
	}
	defer tty.Close()
	return term.ReadPassword(int(tty.Fd()))
}
