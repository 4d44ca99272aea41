package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mediavault-app/mediavault/internal/events"
	"github.com/mediavault-app/mediavault/internal/models"
	"github.com/mediavault-app/mediavault/internal/transport"
)

// MediaAccessMediator builds fetchable media URLs. It consults the
// capability cache first and asks the server to sign only on a miss.
// The URLs it produces carry the resource ID, the signature, and for
// thumbnails the size name. Nothing else ever reaches a URL.
type MediaAccessMediator struct {
	transport transport.Transport
	cache     *CapabilityCache
	logger    *events.Logger
}

// NewMediator creates a media access mediator.
func NewMediator(t transport.Transport, cache *CapabilityCache, logger *events.Logger) *MediaAccessMediator {
	return &MediaAccessMediator{
		transport: t,
		cache:     cache,
		logger:    logger.WithField("component", "mediator"),
	}
}

// MediaURL returns a relative URL for the full media bytes.
func (m *MediaAccessMediator) MediaURL(ctx context.Context, resourceID string) (string, error) {
	token, err := m.capability(ctx, resourceID, models.VariantMedia, "")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("/media/%s?decrypt=true&sig=%s",
		url.PathEscape(resourceID), url.QueryEscape(token.Signature)), nil
}

// ThumbnailURL returns a relative URL for a thumbnail variant.
func (m *MediaAccessMediator) ThumbnailURL(ctx context.Context, resourceID, size string) (string, error) {
	if size == "" {
		size = "medium"
	}
	if _, ok := models.ThumbnailSizes[size]; !ok {
		return "", fmt.Errorf("unknown thumbnail size %q", size)
	}

	token, err := m.capability(ctx, resourceID, models.VariantThumbnail, size)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("/media/%s/thumbnail?decrypt=true&sig=%s&size=%s",
		url.PathEscape(resourceID), url.QueryEscape(token.Signature), url.QueryEscape(size)), nil
}

// FetchMedia resolves a signed URL and downloads the decrypted bytes.
func (m *MediaAccessMediator) FetchMedia(ctx context.Context, resourceID string) ([]byte, error) {
	path, err := m.MediaURL(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return m.transport.FetchMedia(ctx, path)
}

// FetchThumbnail resolves a signed URL and downloads a thumbnail.
func (m *MediaAccessMediator) FetchThumbnail(ctx context.Context, resourceID, size string) ([]byte, error) {
	path, err := m.ThumbnailURL(ctx, resourceID, size)
	if err != nil {
		return nil, err
	}
	return m.transport.FetchMedia(ctx, path)
}

// capability returns a live token from the cache or the server.
func (m *MediaAccessMediator) capability(ctx context.Context, resourceID string, variant models.FetchVariant, size string) (models.CapabilityToken, error) {
	if token, ok := m.cache.Get(resourceID, variant, size); ok {
		return token, nil
	}

	resp, err := m.transport.PostJSON(ctx, "/vault/sign-url", models.SignURLRequest{
		ResourceID: resourceID,
		Variant:    variant,
		Size:       size,
	})
	if err != nil {
		return models.CapabilityToken{}, fmt.Errorf("sign url: %w", err)
	}

	signature, _ := resp["signature"].(string)
	if signature == "" {
		return models.CapabilityToken{}, fmt.Errorf("sign url: empty signature in response")
	}

	// A response without a usable expiry is malformed; guessing one
	// would cache a token whose lifetime the client cannot know.
	raw, ok := resp["expires_at"].(string)
	if !ok {
		return models.CapabilityToken{}, fmt.Errorf("sign url: missing expires_at in response")
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return models.CapabilityToken{}, fmt.Errorf("sign url: parse expires_at: %w", err)
	}

	token := models.CapabilityToken{
		ResourceID: resourceID,
		Variant:    variant,
		Signature:  signature,
		IssuedAt:   time.Now(),
		ExpiresAt:  expiresAt,
	}

	m.cache.Set(resourceID, variant, size, token)

	m.logger.WithFields(map[string]interface{}{
		"resource_id": resourceID,
		"variant":     variant,
	}).Debug("Cached new capability")

	return token, nil
}
