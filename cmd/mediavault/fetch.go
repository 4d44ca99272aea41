package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mediavault-app/mediavault/internal/client"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <resource-id>",
	Short: "Fetch a media resource from a running vault server",
	Long: `Fetch unlocks the vault, obtains a signed capability for the
resource, downloads the decrypted bytes, and locks the vault again.`,
	Example: `  mediavault fetch res-42 --out photo.jpg
  mediavault fetch res-42 --thumbnail small --out thumb.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

var (
	fetchOut       string
	fetchThumbnail string
	fetchPassFile  string
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchOut, "out", "o", "",
		"Output file (required)")
	fetchCmd.Flags().StringVar(&fetchThumbnail, "thumbnail", "",
		"Fetch a thumbnail of this size instead of the full media")
	fetchCmd.Flags().StringVar(&fetchPassFile, "passphrase-file", "",
		"Read the vault passphrase from a file instead of prompting")

	_ = fetchCmd.MarkFlagRequired("out")
}

func runFetch(cmd *cobra.Command, args []string) error {
	resourceID := args[0]
	ctx := context.Background()

	passphrase, err := fetchPassphrase()
	if err != nil {
		return err
	}

	c := client.New(cfg, logger)
	defer c.Close()

	if err := c.Unlock(ctx, passphrase); err != nil {
		return err
	}
	defer func() {
		if err := c.Lock(context.Background()); err != nil {
			logger.WithError(err).Warn("Failed to lock vault")
		}
	}()

	var data []byte
	if fetchThumbnail != "" {
		data, err = c.Media.FetchThumbnail(ctx, resourceID, fetchThumbnail)
	} else {
		data, err = c.Media.FetchMedia(ctx, resourceID)
	}
	if err != nil {
		if !jsonOutput {
			printError("Fetch failed: %v", err)
		}
		return err
	}

	if err := os.WriteFile(fetchOut, data, 0600); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":     true,
			"resource_id": resourceID,
			"out":         fetchOut,
			"size":        len(data),
		})
	} else {
		printSuccess("Fetched %s (%d bytes) to %s", resourceID, len(data), fetchOut)
	}

	return nil
}

func fetchPassphrase() (string, error) {
	if fetchPassFile != "" {
		data, err := os.ReadFile(fetchPassFile)
		if err != nil {
			return "", fmt.Errorf("read passphrase file: %w", err)
		}
		return trimNewline(string(data)), nil
	}
	return promptPassphrase("Vault passphrase: ")
}
