// Package capability brokers access to decrypted media. An issued
// grant maps a random signature to one resource, one owner, and one
// fetch variant for a short window; the vault key never appears in a
// grant or a URL.
package capability

import (
	"errors"
	"time"

	"github.com/mediavault-app/mediavault/internal/models"
)

// Grant is the server-side record behind an issued capability token.
type Grant struct {
	ID         string
	Signature  string
	ResourceID string
	OwnerID    string
	Variant    models.FetchVariant
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Token converts a grant to its client-visible token form.
func (g *Grant) Token() *models.CapabilityToken {
	return &models.CapabilityToken{
		ResourceID: g.ResourceID,
		OwnerID:    g.OwnerID,
		Variant:    g.Variant,
		Signature:  g.Signature,
		IssuedAt:   g.IssuedAt,
		ExpiresAt:  g.ExpiresAt,
	}
}

// Store persists capability grants. Implementations serialize inserts,
// lookups, and revocation so a validation never observes a
// half-inserted or half-revoked grant.
type Store interface {
	// Put records a grant.
	Put(grant *Grant) error

	// Get retrieves a grant by signature.
	Get(signature string) (*Grant, error)

	// RevokeOwner removes every grant for an owner, returning how many
	// were removed.
	RevokeOwner(ownerID string) (int, error)

	// DeleteExpired prunes grants past expiry at the given instant.
	DeleteExpired(now time.Time) (int, error)

	// Close releases resources.
	Close() error
}

// Store errors
var (
	ErrGrantNotFound = errors.New("grant not found")
)
