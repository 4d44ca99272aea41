package vault

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mediavault-app/mediavault/internal/crypto"
)

// Credentials is the persisted unlock material for a vault: the
// passphrase verifier and the salt the working key derives from. The
// verifier uses its own salt, so the stored hash never equals the
// working key and the key itself is never persisted.
type Credentials struct {
	Verifier   string `json:"verifier"`
	KeySalt    string `json:"key_salt"` // base64
	Iterations int    `json:"iterations"`
}

// NewCredentials builds credentials for a new vault passphrase.
func NewCredentials(engine *crypto.AESEngine, passphrase string) (*Credentials, error) {
	verifier, err := engine.HashPassword(passphrase)
	if err != nil {
		return nil, fmt.Errorf("hash passphrase: %w", err)
	}

	keySalt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("generate key salt: %w", err)
	}

	return &Credentials{
		Verifier:   verifier,
		KeySalt:    base64.StdEncoding.EncodeToString(keySalt),
		Iterations: engine.Iterations(),
	}, nil
}

// DecodeKeySalt returns the raw key salt bytes.
func (c *Credentials) DecodeKeySalt() ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(c.KeySalt)
	if err != nil {
		return nil, fmt.Errorf("decode key salt: %w", err)
	}
	if len(salt) != crypto.SaltSize {
		return nil, fmt.Errorf("key salt must be %d bytes, got %d", crypto.SaltSize, len(salt))
	}
	return salt, nil
}

// LoadCredentials reads credentials from disk.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	if _, err := creds.DecodeKeySalt(); err != nil {
		return nil, err
	}

	return &creds, nil
}

// SaveCredentials writes credentials with restricted permissions.
func SaveCredentials(path string, creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}

	return nil
}
