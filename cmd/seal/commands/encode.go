package commands

import (
	"encoding/base64"

	"github.com/spf13/cobra"
)

func NewEncodeCommand() *cobra.Command {
	var (
		inPath    string
		elementID string
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode HTML into a public data value",
		Long: `Base64-encode HTML for a public element. Public content is not secret;
it is still sanitized before it reaches the frame.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, inPath)
			if err != nil {
				return err
			}
			return writeValue(cmd, elementID, true, base64.StdEncoding.EncodeToString(data))
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "", "Input file (stdin when empty)")
	cmd.Flags().StringVar(&elementID, "id", "", "Print an iframe with this id")

	return cmd
}
