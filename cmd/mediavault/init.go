package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mediavault-app/mediavault/internal/crypto"
	"github.com/mediavault-app/mediavault/internal/vault"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new vault",
	Long: `Init sets the vault passphrase and writes the credentials file.
The passphrase itself is never stored; only a salted verifier and the
key derivation salt are persisted.`,
	Example: `  mediavault init
  mediavault init --passphrase-file pass.txt`,
	RunE: runInit,
}

var (
	initPassphraseFile string
	initForce          bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initPassphraseFile, "passphrase-file", "",
		"Read the passphrase from a file instead of prompting")
	initCmd.Flags().BoolVar(&initForce, "force", false,
		"Overwrite existing credentials")
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	if _, err := os.Stat(cfg.Vault.PasswordHashFile); err == nil && !initForce {
		return fmt.Errorf("vault already initialized at %s (use --force to replace)", cfg.Vault.PasswordHashFile)
	}

	passphrase, err := readPassphrase()
	if err != nil {
		return err
	}
	if passphrase == "" {
		return fmt.Errorf("passphrase must not be empty")
	}

	engine := crypto.NewEngineWithIterations(cfg.Vault.Iterations)

	creds, err := vault.NewCredentials(engine, passphrase)
	if err != nil {
		return fmt.Errorf("create credentials: %w", err)
	}

	if err := vault.SaveCredentials(cfg.Vault.PasswordHashFile, creds); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":    true,
			"path":       cfg.Vault.PasswordHashFile,
			"iterations": creds.Iterations,
		})
	} else {
		printSuccess("Vault initialized at %s", cfg.Vault.PasswordHashFile)
	}

	return nil
}

func readPassphrase() (string, error) {
	if initPassphraseFile != "" {
		data, err := os.ReadFile(initPassphraseFile)
		if err != nil {
			return "", fmt.Errorf("read passphrase file: %w", err)
		}
		return trimNewline(string(data)), nil
	}

	first, err := promptPassphrase("Vault passphrase: ")
	if err != nil {
		return "", err
	}

	second, err := promptPassphrase("Confirm passphrase: ")
	if err != nil {
		return "", err
	}

	if first != second {
		return "", fmt.Errorf("passphrases do not match")
	}

	return first, nil
}

func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	passphrase, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}

	return string(passphrase), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
