package commands

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/keyx/internal/cipher"
)

func NewEncryptCommand() *cobra.Command {
	var (
		keyFlag   string
		inPath    string
		elementID string
		adFlag    string
	)

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Seal HTML into a private data value",
		Long: `Encrypt HTML with AES-GCM-SIV and print the envelope
base64(nonce):base64(ciphertext) used as a private element's data.

Examples:
  # Encrypt a file
  seal encrypt --key "$KEY" --in page.html

  # Print a ready iframe
  KEYX_KEY="$KEY" seal encrypt --id report < page.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keyMaterial(keyFlag)
			if err != nil {
				return err
			}
			defer zeroBytes(key)

			plaintext, err := readInput(cmd, inPath)
			if err != nil {
				return err
			}
			defer zeroBytes(plaintext)

			aead := cipher.NewAESGCMSIV()
			if adFlag != "" {
				aead.WithAssociatedData([]byte(adFlag))
			}

			envelope, err := aead.Seal(plaintext, key)
			if err != nil {
				return err
			}
			return writeValue(cmd, elementID, false, envelope)
		},
	}

	cmd.Flags().StringVar(&keyFlag, "key", "", "Base64 key material (or KEYX_KEY)")
	cmd.Flags().StringVar(&inPath, "in", "", "Input file (stdin when empty)")
	cmd.Flags().StringVar(&elementID, "id", "", "Print an iframe with this id")
	cmd.Flags().StringVar(&adFlag, "ad", "", "Associated data bound to the envelope")

	return cmd
}
