package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mediavault-app/mediavault/internal/client"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <resource-id> <file>",
	Short: "Upload a media file to a running vault server",
	Long: `Upload unlocks the vault and stores the file encrypted under the
vault key. The content type is inferred from the file extension unless
given explicitly.`,
	Example: `  mediavault upload res-42 photo.jpg
  mediavault upload res-42 photo.jpg --content-type image/jpeg`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

var (
	uploadContentType string
	uploadPassFile    string
)

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVar(&uploadContentType, "content-type", "",
		"Content type of the media")
	uploadCmd.Flags().StringVar(&uploadPassFile, "passphrase-file", "",
		"Read the vault passphrase from a file instead of prompting")
}

func runUpload(cmd *cobra.Command, args []string) error {
	resourceID, file := args[0], args[1]
	ctx := context.Background()

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read media file: %w", err)
	}

	contentType := uploadContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(file))
	}

	passphrase, err := uploadPassphrase()
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

	if err := c.Upload(ctx, resourceID, data, contentType); err != nil {
		if !jsonOutput {
			printError("Upload failed: %v", err)
		}
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":     true,
			"resource_id": resourceID,
			"size":        len(data),
		})
	} else {
		printSuccess("Uploaded %s (%d bytes) as %s", file, len(data), resourceID)
	}

	return nil
}

func uploadPassphrase() (string, error) {
	if uploadPassFile != "" {
		data, err := os.ReadFile(uploadPassFile)
		if err != nil {
			return "", fmt.Errorf("read passphrase file: %w", err)
		}
		return trimNewline(string(data)), nil
	}
	return promptPassphrase("Vault passphrase: ")
}
