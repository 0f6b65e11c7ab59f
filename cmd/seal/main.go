package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/keyx/cmd/seal/commands"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		memguard.SafeExit(1)
	}
	memguard.Purge()
}

func run() error {
	rootCmd := &cobra.Command{
		Use:   "seal",
		Short: "Produce content element payloads for keyx",
		Long: `seal generates keys and turns HTML into the data attribute values the
keyx render pipeline consumes: base64 for public elements and AES-GCM-SIV
envelopes for private ones.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		commands.NewKeygenCommand(),
		commands.NewDeriveCommand(),
		commands.NewEncryptCommand(),
		commands.NewEncodeCommand(),
	)

	return rootCmd.Execute()
}
