package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a config loader.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		envPrefix:  "MEDIAVAULT_",
	}
}

// Load reads configuration from file and environment.
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Load from file if exists
	if l.configPath != "" {
		if err := l.loadFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else {
		// Try default locations
		for _, path := range l.defaultPaths() {
			if _, err := os.Stat(path); err == nil {
				l.configPath = path
				if err := l.loadFile(cfg); err != nil {
					return nil, fmt.Errorf("load config file %s: %w", path, err)
				}
				break
			}
		}
	}

	// Override with environment variables
	if err := l.loadEnv(cfg); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	// Validate final config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// defaultPaths returns default config file locations.
func (l *Loader) defaultPaths() []string {
	paths := []string{
		"mediavault.json",
		".mediavault.json",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".config", "mediavault", "config.json"),
			filepath.Join(homeDir, ".mediavault", "config.json"),
		)
	}

	return paths
}

// loadFile reads config from JSON file.
func (l *Loader) loadFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}

	return nil
}

// loadEnv overrides config from environment variables.
func (l *Loader) loadEnv(cfg *Config) error {
	// Server settings
	if v := os.Getenv(l.envPrefix + "SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	// API settings
	if v := os.Getenv(l.envPrefix + "API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}

	if v := os.Getenv(l.envPrefix + "API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse API_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = d
	}

	// Vault settings
	if v := os.Getenv(l.envPrefix + "VAULT_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse VAULT_ITERATIONS: %w", err)
		}
		cfg.Vault.Iterations = n
	}

	if v := os.Getenv(l.envPrefix + "VAULT_UNLOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse VAULT_UNLOCK_TIMEOUT: %w", err)
		}
		cfg.Vault.UnlockTimeout = d
	}

	// Capability settings
	if v := os.Getenv(l.envPrefix + "CAPABILITY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse CAPABILITY_TTL: %w", err)
		}
		cfg.Capability.TTL = d
	}

	if v := os.Getenv(l.envPrefix + "CAPABILITY_REFRESH_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse CAPABILITY_REFRESH_SKEW: %w", err)
		}
		cfg.Capability.RefreshSkew = d
	}

	if v := os.Getenv(l.envPrefix + "CAPABILITY_STORE_PATH"); v != "" {
		cfg.Capability.StorePath = v
	}

	// Storage settings
	if v := os.Getenv(l.envPrefix + "DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
		// Update dependent paths
		cfg.Storage.MediaDir = filepath.Join(v, "media")
		cfg.Storage.ThumbDir = filepath.Join(v, "thumbs")
		cfg.Vault.PasswordHashFile = filepath.Join(v, "vault.passwd")
	}

	// Log settings
	if v := os.Getenv(l.envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}

	if v := os.Getenv(l.envPrefix + "LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}

	if v := os.Getenv(l.envPrefix + "LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	return nil
}
