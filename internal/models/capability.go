package models

import "time"

// FetchVariant identifies which logical fetch a capability authorizes.
// A grant for one variant never validates for another.
type FetchVariant string

const (
	// VariantMedia authorizes fetching the full decrypted media bytes.
	VariantMedia FetchVariant = "media"

	// VariantThumbnail authorizes fetching a decrypted thumbnail. The
	// requested size is carried separately so different sizes occupy
	// different cache slots on the client.
	VariantThumbnail FetchVariant = "thumbnail"
)

// CapabilityToken is the client-visible form of an issued capability.
// It carries no vault key material; the signature is an independent
// random value mapped to the grant server-side.
type CapabilityToken struct {
	ResourceID string       `json:"resource_id"`
	OwnerID    string       `json:"owner_id"`
	Variant    FetchVariant `json:"variant"`
	Signature  string       `json:"signature"`
	IssuedAt   time.Time    `json:"issued_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
}

// TTL returns the token's validity window.
func (t *CapabilityToken) TTL() time.Duration {
	return t.ExpiresAt.Sub(t.IssuedAt)
}

// IsExpired reports whether the token is past its expiry at the given
// instant.
func (t *CapabilityToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// NeedsRefresh reports whether the remaining validity has dropped below
// the refresh skew, meaning a client should reissue rather than reuse.
func (t *CapabilityToken) NeedsRefresh(now time.Time, skew time.Duration) bool {
	return !now.Before(t.ExpiresAt.Add(-skew))
}

// SignURLRequest is the body of POST /vault/sign-url.
type SignURLRequest struct {
	ResourceID string       `json:"resource_id"`
	Variant    FetchVariant `json:"variant,omitempty"`
	Size       string       `json:"size,omitempty"`
}

// SignURLResponse is the success body of POST /vault/sign-url.
type SignURLResponse struct {
	Signature string    `json:"signature"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VaultEvent is pushed over the lock-event channel.
type VaultEvent struct {
	Type    string    `json:"type"`
	OwnerID string    `json:"owner_id,omitempty"`
	At      time.Time `json:"at"`
}

// Vault event types.
const (
	EventVaultLocked   = "vault_locked"
	EventVaultUnlocked = "vault_unlocked"
)
