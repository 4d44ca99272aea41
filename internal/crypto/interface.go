package crypto

// Engine defines the interface for the vault's cryptographic operations.
// Implementations are stateless beyond algorithm parameters; every call
// takes all required material as explicit arguments, so an Engine is
// safe for concurrent use.
type Engine interface {
	// EncryptBuffer encrypts plaintext under a passphrase-derived key
	// and returns a salt‖iv‖tag‖ciphertext blob.
	EncryptBuffer(plaintext []byte, passphrase string) ([]byte, error)

	// DecryptBuffer reverses EncryptBuffer. Tag failures from a wrong
	// passphrase and from tampering are indistinguishable.
	DecryptBuffer(blob []byte, passphrase string) ([]byte, error)

	// EncryptString / DecryptString are UTF-8 wrappers over the buffer
	// variants.
	EncryptString(plaintext, passphrase string) ([]byte, error)
	DecryptString(blob []byte, passphrase string) (string, error)

	// DeriveKey derives a 32-byte key from a passphrase and salt.
	DeriveKey(passphrase string, salt []byte) []byte

	// HashPassword produces a "salt:hash" verifier for storage.
	HashPassword(password string) (string, error)

	// VerifyPassword checks a password against a stored verifier in
	// constant time with respect to the secret.
	VerifyPassword(password, stored string) bool
}
