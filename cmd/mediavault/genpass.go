package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mediavault-app/mediavault/internal/crypto"
)

var genpassCmd = &cobra.Command{
	Use:   "genpass",
	Short: "Generate a random passphrase",
	Long: `Genpass prints a cryptographically random passphrase suitable for
use as the vault passphrase.`,
	Example: `  mediavault genpass
  mediavault genpass --length 48`,
	RunE: runGenpass,
}

var genpassLength int

func init() {
	rootCmd.AddCommand(genpassCmd)

	genpassCmd.Flags().IntVarP(&genpassLength, "length", "l",
		crypto.DefaultPasswordLength, "Passphrase length in characters")
}

func runGenpass(cmd *cobra.Command, args []string) error {
	password, err := crypto.GenerateSecurePassword(genpassLength)
	if err != nil {
		return fmt.Errorf("generate passphrase: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"passphrase": password,
			"length":     len(password),
		})
	} else {
		fmt.Println(password)
	}

	return nil
}
