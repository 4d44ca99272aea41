package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

// DeriveKey derives a 32-byte key from a passphrase and salt using
// PBKDF2-SHA256 at the engine's iteration count. Deterministic for
// identical inputs; the passphrase is NFKC-normalized first so that
// composed and decomposed forms of the same text derive the same key.
func (e *AESEngine) DeriveKey(passphrase string, salt []byte) []byte {
	return deriveKey(passphrase, salt, e.iterations)
}

// DeriveKeyWithIterations is the package-level form for callers that
// carry their own cost parameter (stored verifiers record theirs).
func DeriveKeyWithIterations(passphrase string, salt []byte, iterations int) []byte {
	return deriveKey(passphrase, salt, iterations)
}

func deriveKey(passphrase string, salt []byte, iterations int) []byte {
	normalized := norm.NFKC.String(passphrase)
	return pbkdf2.Key([]byte(normalized), salt, iterations, KeySize, sha256.New)
}
