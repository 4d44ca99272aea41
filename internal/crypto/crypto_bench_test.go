package crypto_test

import (
	"crypto/rand"
	"testing"

	"github.com/mediavault-app/mediavault/internal/crypto"
)

func BenchmarkDeriveKey(b *testing.B) {
	engine := crypto.NewEngine()
	salt, err := crypto.GenerateSalt()
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.DeriveKey("benchmark passphrase", salt)
	}
}

func BenchmarkEncryptWithKey(b *testing.B) {
	engine := crypto.NewEngine()
	salt, _ := crypto.GenerateSalt()
	key := engine.DeriveKey("pw", salt)

	sizes := map[string]int{
		"1KB":   1024,
		"100KB": 100 * 1024,
		"10MB":  10 * 1024 * 1024,
	}

	for name, size := range sizes {
		plaintext := make([]byte, size)
		if _, err := rand.Read(plaintext); err != nil {
			b.Fatal(err)
		}

		b.Run(name, func(b *testing.B) {
			b.SetBytes(int64(size))
			for i := 0; i < b.N; i++ {
				if _, err := engine.EncryptWithKey(plaintext, key, salt); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDecryptWithKey(b *testing.B) {
	engine := crypto.NewEngine()
	salt, _ := crypto.GenerateSalt()
	key := engine.DeriveKey("pw", salt)

	plaintext := make([]byte, 100*1024)
	if _, err := rand.Read(plaintext); err != nil {
		b.Fatal(err)
	}

	blob, err := engine.EncryptWithKey(plaintext, key, salt)
	if err != nil {
		b.Fatal(err)
	}

	b.SetBytes(int64(len(plaintext)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.DecryptWithKey(blob, key); err != nil {
			b.Fatal(err)
		}
	}
}
