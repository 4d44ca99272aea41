package crypto_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediavault-app/mediavault/internal/crypto"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	engine := crypto.NewEngine()

	large := make([]byte, 128*1024)
	_, err := rand.Read(large)
	require.NoError(t, err)

	tests := []struct {
		name       string
		plaintext  []byte
		passphrase string
	}{
		{"empty payload", []byte{}, "correct horse battery staple"},
		{"small payload", []byte("hello vault"), "pass"},
		{"binary payload", []byte{0x00, 0xFF, 0x10, 0x80, 0x00}, "p@ss"},
		{"large payload", large, "a longer passphrase with spaces"},
		{"unicode passphrase", []byte("data"), "пароль-密码-🔐"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := engine.EncryptBuffer(tt.plaintext, tt.passphrase)
			require.NoError(t, err)

			require.GreaterOrEqual(t, len(blob), crypto.HeaderSize)
			assert.Equal(t, crypto.HeaderSize+len(tt.plaintext), len(blob))

			plain, err := engine.DecryptBuffer(blob, tt.passphrase)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.plaintext, plain))
		})
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	engine := crypto.NewEngine()
	plaintext := []byte("same input twice")

	blob1, err := engine.EncryptBuffer(plaintext, "pw")
	require.NoError(t, err)

	blob2, err := engine.EncryptBuffer(plaintext, "pw")
	require.NoError(t, err)

	assert.NotEqual(t, blob1, blob2)
	assert.NotEqual(t, blob1[:crypto.SaltSize], blob2[:crypto.SaltSize], "salt reused")
	assert.NotEqual(t,
		blob1[crypto.SaltSize:crypto.SaltSize+crypto.IVSize],
		blob2[crypto.SaltSize:crypto.SaltSize+crypto.IVSize], "iv reused")
}

func TestDecryptWrongPassphrase(t *testing.T) {
	engine := crypto.NewEngine()

	blob, err := engine.EncryptBuffer([]byte("secret"), "right")
	require.NoError(t, err)

	_, err = engine.DecryptBuffer(blob, "wrong")
	assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
}

func TestDecryptTamperedBlob(t *testing.T) {
	engine := crypto.NewEngine()

	blob, err := engine.EncryptBuffer([]byte("tamper target payload"), "pw")
	require.NoError(t, err)

	// One offset in each region of the layout plus ciphertext interior
	// and final byte. A flip anywhere must fail the tag check.
	offsets := []int{
		0,                      // salt
		crypto.SaltSize + 3,    // iv
		crypto.SaltSize + 16,   // tag
		crypto.HeaderSize,      // first ciphertext byte
		crypto.HeaderSize + 10, // ciphertext interior
		len(blob) - 1,          // last byte
	}

	for _, off := range offsets {
		tampered := make([]byte, len(blob))
		copy(tampered, blob)
		tampered[off] ^= 0x01

		_, err := engine.DecryptBuffer(tampered, "pw")
		assert.ErrorIs(t, err, crypto.ErrDecryptionFailed, "offset %d", off)
	}
}

func TestDecryptEveryBitOfHeaderAndBody(t *testing.T) {
	// Exhaustive single-bit flips using a pre-derived key so the KDF
	// runs once, not once per flip.
	engine := crypto.NewEngine()

	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)
	key := engine.DeriveKey("pw", salt)

	blob, err := engine.EncryptWithKey([]byte("bitflip"), key, salt)
	require.NoError(t, err)

	// Salt bytes do not participate in DecryptWithKey; start at the IV.
	for off := crypto.SaltSize; off < len(blob); off++ {
		for bit := 0; bit < 8; bit++ {
			tampered := make([]byte, len(blob))
			copy(tampered, blob)
			tampered[off] ^= 1 << bit

			_, err := engine.DecryptWithKey(tampered, key)
			require.ErrorIs(t, err, crypto.ErrDecryptionFailed,
				"offset %d bit %d", off, bit)
		}
	}
}

func TestDecryptShortBuffer(t *testing.T) {
	engine := crypto.NewEngine()

	tests := []struct {
		name string
		blob []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"one byte", []byte{0x01}},
		{"one short of header", make([]byte, crypto.HeaderSize-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.DecryptBuffer(tt.blob, "pw")
			assert.ErrorIs(t, err, crypto.ErrInvalidBufferLength)
		})
	}

	// Exactly header-sized is structurally valid: an empty plaintext.
	blob, err := engine.EncryptBuffer(nil, "pw")
	require.NoError(t, err)
	assert.Equal(t, crypto.HeaderSize, len(blob))
}

func TestStringRoundTrip(t *testing.T) {
	engine := crypto.NewEngine()

	tests := []string{
		"",
		"plain ascii",
		"tabs\tand\nnewlines",
		"ünïcödé ελληνικά 日本語 🎥",
	}

	for _, s := range tests {
		blob, err := engine.EncryptString(s, "pw")
		require.NoError(t, err)

		got, err := engine.DecryptString(blob, "pw")
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestEncryptWithKeyRoundTrip(t *testing.T) {
	engine := crypto.NewEngine()

	salt, err := crypto.GenerateSalt()
	require.NoError(t, err)
	key := engine.DeriveKey("pw", salt)

	blob, err := engine.EncryptWithKey([]byte("payload"), key, salt)
	require.NoError(t, err)

	// Same blob decrypts via both the key path and the passphrase path.
	plain, err := engine.DecryptWithKey(blob, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), plain)

	plain, err = engine.DecryptBuffer(blob, "pw")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), plain)

	embedded, err := crypto.BlobSalt(blob)
	require.NoError(t, err)
	assert.Equal(t, salt, embedded)
}

func TestEncryptWithKeyRejectsBadSizes(t *testing.T) {
	engine := crypto.NewEngine()

	_, err := engine.EncryptWithKey([]byte("x"), []byte("short"), make([]byte, crypto.SaltSize))
	assert.ErrorIs(t, err, crypto.ErrInvalidKey)

	_, err = engine.EncryptWithKey([]byte("x"), make([]byte, crypto.KeySize), []byte("short"))
	assert.Error(t, err)

	_, err = engine.DecryptWithKey(make([]byte, crypto.HeaderSize), []byte("short"))
	assert.ErrorIs(t, err, crypto.ErrInvalidKey)
}
