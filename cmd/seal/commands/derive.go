package commands

import (
	"encoding/base64"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/keyx/internal/cipher"
)

func NewDeriveCommand() *cobra.Command {
	var (
		saltFlag string
		confirm  bool
		keyOnly  bool
		params   = cipher.DefaultKDFParams()
	)

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive key material from a passphrase",
		Long: `Derive a 256-bit key from a passphrase with Argon2id.

The passphrase is read from the terminal, or from KEYX_PASSPHRASE when set.
Without --salt a random salt is generated; keep the printed salt and
parameters to derive the same key again.

Examples:
  # New key from a passphrase
  seal derive

  # Re-derive with a known salt and print only the key
  seal derive --salt 3q2+7w== --key-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var salt []byte
			var err error
			if saltFlag != "" {
				salt, err = base64.StdEncoding.DecodeString(saltFlag)
				if err != nil {
					return fmt.Errorf("invalid salt: %w", err)
				}
			} else {
				salt, err = cipher.NewSalt()
				if err != nil {
					return err
				}
			}

			passphrase, err := getPassphraseWithConfirm(cmd, confirm && saltFlag == "")
			if err != nil {
				return err
			}
			defer zeroBytes(passphrase)

			derived, err := cipher.DeriveKey(passphrase, salt, params)
			if err != nil {
				return err
			}

			if keyOnly {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), derived.Material)
				return err
			}

			out, err := sonic.ConfigStd.MarshalIndent(derived, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVar(&saltFlag, "salt", "", "Base64 salt (random when empty)")
	cmd.Flags().BoolVar(&confirm, "confirm", true, "Ask for the passphrase twice")
	cmd.Flags().BoolVar(&keyOnly, "key-only", false, "Print only the key")
	cmd.Flags().Uint32Var(&params.Time, "time", params.Time, "Argon2id iterations")
	cmd.Flags().Uint32Var(&params.Memory, "memory", params.Memory, "Argon2id memory in KiB")
	cmd.Flags().Uint8Var(&params.Threads, "threads", params.Threads, "Argon2id parallelism")

	return cmd
}
