package capability

import (
	"fmt"
	"sync"
	"time"

	"github.com/mediavault-app/mediavault/internal/crypto"
	"github.com/mediavault-app/mediavault/internal/events"
	"github.com/mediavault-app/mediavault/internal/models"
	"github.com/mediavault-app/mediavault/internal/vault"
)

// Issuer mints and validates short-lived capability grants. Signatures
// are independent random values, never derived from vault key material,
// so a leaked signature exposes nothing about the key.
type Issuer struct {
	store  Store
	ttl    time.Duration
	logger *events.Logger

	janitorOnce sync.Once
	stopOnce    sync.Once
	janitorStop chan struct{}
}

// NewIssuer creates an issuer over a grant store with a fixed TTL.
func NewIssuer(store Store, ttl time.Duration, logger *events.Logger) *Issuer {
	return &Issuer{
		store:       store,
		ttl:         ttl,
		logger:      logger.WithField("component", "capability_issuer"),
		janitorStop: make(chan struct{}),
	}
}

// TTL returns the fixed validity window for issued grants.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a grant for one resource, owner, and fetch variant. The
// supplied vault context must be live; a locked vault refuses issuance
// rather than minting a token that cannot be served.
func (i *Issuer) Issue(resourceID string, ownerID string, variant models.FetchVariant, vctx *vault.Context) (*models.CapabilityToken, error) {
	if vctx == nil {
		return nil, models.ErrVaultLocked
	}
	if _, err := vctx.Key(); err != nil {
		return nil, models.ErrVaultLocked
	}
	if vctx.OwnerID() != ownerID {
		// A session may only mint grants for its own vault.
		return nil, models.ErrNotAuthenticated
	}

	id, err := crypto.GenerateUUID()
	if err != nil {
		return nil, fmt.Errorf("generate grant id: %w", err)
	}

	signature, err := crypto.GenerateSignature()
	if err != nil {
		return nil, fmt.Errorf("generate signature: %w", err)
	}

	now := time.Now()
	grant := &Grant{
		ID:         id,
		Signature:  signature,
		ResourceID: resourceID,
		OwnerID:    ownerID,
		Variant:    variant,
		IssuedAt:   now,
		ExpiresAt:  now.Add(i.ttl),
	}

	if err := i.store.Put(grant); err != nil {
		return nil, fmt.Errorf("store grant: %w", err)
	}

	i.logger.WithFields(map[string]interface{}{
		"resource_id": resourceID,
		"owner_id":    ownerID,
		"variant":     string(variant),
		"expires_at":  grant.ExpiresAt.Format(time.RFC3339),
	}).Debug("Issued capability")

	return grant.Token(), nil
}

// Validate checks a presented signature against the grant store. The
// checks run in a fixed order and the first failure wins: expiry, then
// resource binding, then fetch variant, then owner identity. An unknown
// signature and a signature bound to a different resource or variant
// are the same failure; revealing which would leak resource existence.
func (i *Issuer) Validate(signature, resourceID string, variant models.FetchVariant, requesterID string) error {
	if signature == "" {
		return i.deny(resourceID, requesterID, models.ErrSignatureUnknown)
	}

	grant, err := i.store.Get(signature)
	if err != nil {
		if err == ErrGrantNotFound {
			return i.deny(resourceID, requesterID, models.ErrSignatureUnknown)
		}
		return fmt.Errorf("load grant: %w", err)
	}

	if !time.Now().Before(grant.ExpiresAt) {
		return i.deny(resourceID, requesterID, models.ErrSignatureExpired)
	}

	if grant.ResourceID != resourceID || grant.Variant != variant {
		return i.deny(resourceID, requesterID, models.ErrSignatureUnknown)
	}

	if grant.OwnerID != requesterID {
		return i.deny(resourceID, requesterID, models.ErrSignatureOwnerMismatch)
	}

	return nil
}

// RevokeAll invalidates every outstanding grant for an owner. Called
// from the vault lock path so cached client tokens die with the vault
// key rather than living until natural expiry.
func (i *Issuer) RevokeAll(ownerID string) error {
	n, err := i.store.RevokeOwner(ownerID)
	if err != nil {
		return fmt.Errorf("revoke grants: %w", err)
	}

	i.logger.WithFields(map[string]interface{}{
		"owner_id": ownerID,
		"count":    n,
	}).Info("Revoked capabilities")

	return nil
}

// OnVaultLock implements vault.LockObserver.
func (i *Issuer) OnVaultLock(sessionID, ownerID string) {
	if err := i.RevokeAll(ownerID); err != nil {
		i.logger.WithError(err).Error("Revocation on lock failed")
	}
}

// StartJanitor begins periodic pruning of expired grants. Safe to call
// once; Stop ends it.
func (i *Issuer) StartJanitor(interval time.Duration) {
	i.janitorOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					if _, err := i.store.DeleteExpired(time.Now()); err != nil {
						i.logger.WithError(err).Warn("Grant pruning failed")
					}
				case <-i.janitorStop:
					return
				}
			}
		}()
	})
}

// Stop ends the janitor goroutine. Safe to call repeatedly and from
// concurrent callers.
func (i *Issuer) Stop() {
	i.stopOnce.Do(func() {
		close(i.janitorStop)
	})
}

func (i *Issuer) deny(resourceID, requesterID string, reason error) error {
	// The precise reason stays in server logs; callers map every
	// denial to one authorization failure.
	i.logger.WithFields(map[string]interface{}{
		"resource_id":  resourceID,
		"requester_id": requesterID,
		"reason":       reason.Error(),
	}).Warn("Capability denied")

	return &models.CapabilityError{
		ResourceID: resourceID,
		OwnerID:    requesterID,
		Err:        reason,
	}
}
