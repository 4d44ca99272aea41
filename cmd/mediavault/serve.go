package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mediavault-app/mediavault/internal/capability"
	"github.com/mediavault-app/mediavault/internal/crypto"
	"github.com/mediavault-app/mediavault/internal/server"
	"github.com/mediavault-app/mediavault/internal/storage"
	"github.com/mediavault-app/mediavault/internal/vault"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the vault server",
	Long: `Serve starts the HTTP surface: vault unlock and lock, capability
issuance, the lock-event stream, and capability-gated media fetches.

The vault must be initialized first with "mediavault init".`,
	Example: `  mediavault serve
  mediavault serve --config vault.json`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	creds, err := vault.LoadCredentials(cfg.Vault.PasswordHashFile)
	if err != nil {
		return fmt.Errorf("load vault credentials (run \"mediavault init\" first): %w", err)
	}

	engine := crypto.NewEngineWithIterations(cfg.Vault.Iterations)

	manager, err := vault.NewManager(engine, creds, cfg.Vault.UnlockTimeout, logger)
	if err != nil {
		return fmt.Errorf("create vault manager: %w", err)
	}

	store, err := openGrantStore()
	if err != nil {
		return fmt.Errorf("open grant store: %w", err)
	}
	defer store.Close()

	issuer := capability.NewIssuer(store, cfg.Capability.TTL, logger)
	issuer.StartJanitor(cfg.Capability.JanitorInterval)
	defer issuer.Stop()

	blobs, err := storage.NewLocalStore(cfg.Storage.DataDir, cfg.Storage.MaxFileSize, logger)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	srv := server.New(cfg, engine, manager, issuer, blobs, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printInfo("Listening on %s", cfg.Server.Addr)
	return srv.ListenAndServe(ctx)
}

// openGrantStore selects the configured capability store. An empty
// store path keeps grants in memory, which also means a restart
// implicitly revokes everything outstanding.
func openGrantStore() (capability.Store, error) {
	if cfg.Capability.StorePath == "" {
		return capability.NewMemoryStore(), nil
	}
	return capability.NewSQLiteStore(cfg.Capability.StorePath, logger)
}
