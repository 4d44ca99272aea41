package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// API configuration for the client side
	API APIConfig `json:"api"`

	// Vault unlock and key derivation behavior
	Vault VaultConfig `json:"vault"`

	// Capability issuance behavior
	Capability CapabilityConfig `json:"capability"`

	// Storage paths
	Storage StorageConfig `json:"storage"`

	// Logging
	Log LogConfig `json:"log"`
}

// ServerConfig for the HTTP surface.
type ServerConfig struct {
	Addr            string        `json:"addr"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	SessionTTL      time.Duration `json:"session_ttl"`
}

// APIConfig for client communication with the server.
type APIConfig struct {
	BaseURL    string        `json:"base_url"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	UserAgent  string        `json:"user_agent"`
}

// VaultConfig for passphrase handling.
type VaultConfig struct {
	// KDF iteration count. The default follows current password-based
	// KDF guidance; lowering it below the default is a config error.
	Iterations int `json:"iterations"`

	// UnlockTimeout is how long an unlocked vault stays usable without
	// an explicit lock. Zero means no timeout.
	UnlockTimeout time.Duration `json:"unlock_timeout"`

	// PasswordHashFile holds the stored "salt:hash" verifier for the
	// vault passphrase.
	PasswordHashFile string `json:"password_hash_file"`
}

// CapabilityConfig for signed media capabilities.
type CapabilityConfig struct {
	// TTL is the fixed token validity window.
	TTL time.Duration `json:"ttl"`

	// RefreshSkew is how long before real expiry a client treats a
	// cached signature as absent and reissues.
	RefreshSkew time.Duration `json:"refresh_skew"`

	// StorePath is the sqlite grant database. Empty selects the
	// in-memory store.
	StorePath string `json:"store_path"`

	// JanitorInterval controls how often expired grants are pruned.
	JanitorInterval time.Duration `json:"janitor_interval"`
}

// StorageConfig for local file paths.
type StorageConfig struct {
	DataDir     string `json:"data_dir"`      // Base directory for all data
	MediaDir    string `json:"media_dir"`     // Encrypted media blobs
	ThumbDir    string `json:"thumb_dir"`     // Encrypted thumbnail variants
	MaxFileSize int64  `json:"max_file_size"` // Max blob size in bytes
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
	File   string `json:"file"`   // Log file path (empty = stdout)
	Color  bool   `json:"color"`  // Enable colored output
}

// MinIterations is the lowest KDF iteration count the config accepts.
const MinIterations = 600_000

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := ".mediavault"

	return &Config{
		Server: ServerConfig{
			Addr:            ":8487",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			SessionTTL:      12 * time.Hour,
		},
		API: APIConfig{
			BaseURL:    "http://localhost:8487",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			UserAgent:  "mediavault-client/1.0",
		},
		Vault: VaultConfig{
			Iterations:       MinIterations,
			UnlockTimeout:    30 * time.Minute,
			PasswordHashFile: filepath.Join(dataDir, "vault.passwd"),
		},
		Capability: CapabilityConfig{
			TTL:             5 * time.Minute,
			RefreshSkew:     60 * time.Second,
			StorePath:       "",
			JanitorInterval: time.Minute,
		},
		Storage: StorageConfig{
			DataDir:     dataDir,
			MediaDir:    filepath.Join(dataDir, "media"),
			ThumbDir:    filepath.Join(dataDir, "thumbs"),
			MaxFileSize: 500 * 1024 * 1024, // 500MB
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			File:   "",
			Color:  true,
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}

	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}

	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}

	if c.Vault.Iterations < MinIterations {
		return fmt.Errorf("vault.iterations must be at least %d", MinIterations)
	}

	if c.Capability.TTL <= 0 {
		return errors.New("capability.ttl must be positive")
	}

	if c.Capability.RefreshSkew < 0 || c.Capability.RefreshSkew >= c.Capability.TTL {
		return errors.New("capability.refresh_skew must be shorter than capability.ttl")
	}

	if c.Storage.MaxFileSize <= 0 {
		return errors.New("storage.max_file_size must be positive")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDir,
		c.Storage.MediaDir,
		c.Storage.ThumbDir,
		filepath.Dir(c.Vault.PasswordHashFile),
	}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	if c.Capability.StorePath != "" {
		dirs = append(dirs, filepath.Dir(c.Capability.StorePath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
