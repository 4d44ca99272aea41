package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/mediavault-app/mediavault/internal/models"
)

// Blob layout: salt[32] || iv[16] || tag[16] || ciphertext[...].
// The layout is a stable on-disk contract; any future format (for
// example counter-mode streaming) must introduce a version byte rather
// than change these offsets.
const (
	KeySize  = 32 // AES-256
	SaltSize = 32
	IVSize   = 16 // fixed by the stored format, not the GCM default
	TagSize  = 16 // GCM tag

	// HeaderSize is the minimum length of any valid encrypted blob.
	HeaderSize = SaltSize + IVSize + TagSize

	// DefaultIterations for PBKDF2-SHA256, per current password-based
	// KDF guidance.
	DefaultIterations = 600_000
)

// Re-exported sentinel errors so crypto callers do not need to import
// models for the common failure checks.
var (
	ErrDecryptionFailed    = models.ErrDecryptionFailed
	ErrInvalidBufferLength = models.ErrInvalidBufferLength
	ErrInvalidKey          = models.ErrInvalidKey
)

// AESEngine implements Engine using AES-256-GCM with PBKDF2-derived keys.
type AESEngine struct {
	iterations int
}

// NewEngine creates an engine with the default KDF cost.
func NewEngine() *AESEngine {
	return &AESEngine{iterations: DefaultIterations}
}

// NewEngineWithIterations creates an engine with a configured KDF cost.
// Costs below DefaultIterations are raised to it.
func NewEngineWithIterations(iterations int) *AESEngine {
	if iterations < DefaultIterations {
		iterations = DefaultIterations
	}
	return &AESEngine{iterations: iterations}
}

// Iterations returns the engine's KDF cost.
func (e *AESEngine) Iterations() int {
	return e.iterations
}

// EncryptBuffer encrypts plaintext under a fresh salt and IV. Salt and
// IV are drawn from the secure RNG on every call, so two encryptions of
// identical input never produce the same blob.
func (e *AESEngine) EncryptBuffer(plaintext []byte, passphrase string) ([]byte, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	key := e.DeriveKey(passphrase, salt)
	defer Zero(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	// Seal appends the tag to the ciphertext tail; the stored layout
	// wants it between the IV and the ciphertext.
	sealed := aead.Seal(nil, iv, plaintext, nil)
	ctLen := len(sealed) - TagSize

	blob := make([]byte, HeaderSize+ctLen)
	copy(blob[:SaltSize], salt)
	copy(blob[SaltSize:SaltSize+IVSize], iv)
	copy(blob[SaltSize+IVSize:HeaderSize], sealed[ctLen:])
	copy(blob[HeaderSize:], sealed[:ctLen])

	return blob, nil
}

// DecryptBuffer parses the fixed-offset header, re-derives the key from
// the embedded salt, and verifies the tag before returning plaintext.
func (e *AESEngine) DecryptBuffer(blob []byte, passphrase string) ([]byte, error) {
	if len(blob) < HeaderSize {
		return nil, ErrInvalidBufferLength
	}

	salt := blob[:SaltSize]
	iv := blob[SaltSize : SaltSize+IVSize]
	tag := blob[SaltSize+IVSize : HeaderSize]
	ciphertext := blob[HeaderSize:]

	key := e.DeriveKey(passphrase, salt)
	defer Zero(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		// Wrong passphrase and tampered ciphertext both land here.
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// EncryptString encrypts a UTF-8 string.
func (e *AESEngine) EncryptString(plaintext, passphrase string) ([]byte, error) {
	return e.EncryptBuffer([]byte(plaintext), passphrase)
}

// DecryptString decrypts a blob produced by EncryptString.
func (e *AESEngine) DecryptString(blob []byte, passphrase string) (string, error) {
	plaintext, err := e.DecryptBuffer(blob, passphrase)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptWithKey encrypts plaintext under an already-derived key,
// embedding the salt that produced the key so the blob stays
// self-describing. Used on the hot path where the vault context already
// holds the derived key and re-running the KDF per call would be wasted
// work.
func (e *AESEngine) EncryptWithKey(plaintext, key, salt []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes", SaltSize)
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	sealed := aead.Seal(nil, iv, plaintext, nil)
	ctLen := len(sealed) - TagSize

	blob := make([]byte, HeaderSize+ctLen)
	copy(blob[:SaltSize], salt)
	copy(blob[SaltSize:SaltSize+IVSize], iv)
	copy(blob[SaltSize+IVSize:HeaderSize], sealed[ctLen:])
	copy(blob[HeaderSize:], sealed[:ctLen])

	return blob, nil
}

// DecryptWithKey decrypts a blob under an already-derived key. The
// caller owns verifying that the key matches the blob's salt; a
// mismatch simply fails the tag check.
func (e *AESEngine) DecryptWithKey(blob, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	if len(blob) < HeaderSize {
		return nil, ErrInvalidBufferLength
	}

	iv := blob[SaltSize : SaltSize+IVSize]
	tag := blob[SaltSize+IVSize : HeaderSize]
	ciphertext := blob[HeaderSize:]

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// BlobSalt returns the salt embedded in an encrypted blob.
func BlobSalt(blob []byte) ([]byte, error) {
	if len(blob) < HeaderSize {
		return nil, ErrInvalidBufferLength
	}
	salt := make([]byte, SaltSize)
	copy(salt, blob[:SaltSize])
	return salt, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return aead, nil
}

// Zero overwrites key material in place.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
