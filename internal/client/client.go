package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mediavault-app/mediavault/internal/config"
	"github.com/mediavault-app/mediavault/internal/events"
	"github.com/mediavault-app/mediavault/internal/models"
	"github.com/mediavault-app/mediavault/internal/transport"
)

// Client provides the high-level API for talking to a vault server.
type Client struct {
	Media *MediaAccessMediator
	Cache *CapabilityCache

	config    *config.Config
	logger    *events.Logger
	transport transport.Transport
}

// New creates a client from configuration.
func New(cfg *config.Config, logger *events.Logger) *Client {
	t := transport.NewTransport(&cfg.API, logger)
	return NewWithTransport(cfg, t, logger)
}

// NewWithTransport creates a client over an existing transport. Tests
// use this with a mock.
func NewWithTransport(cfg *config.Config, t transport.Transport, logger *events.Logger) *Client {
	cache := NewCapabilityCache(cfg.Capability.RefreshSkew)

	return &Client{
		Media:     NewMediator(t, cache, logger),
		Cache:     cache,
		config:    cfg,
		logger:    logger.WithField("component", "client"),
		transport: t,
	}
}

// Unlock authenticates against the vault and stores the session token
// on the transport.
func (c *Client) Unlock(ctx context.Context, passphrase string) error {
	resp, err := c.transport.PostJSON(ctx, "/vault/unlock", map[string]string{
		"passphrase": passphrase,
	})
	if err != nil {
		return fmt.Errorf("unlock vault: %w", err)
	}

	session, _ := resp["session"].(string)
	if session == "" {
		return fmt.Errorf("unlock vault: no session in response")
	}

	c.transport.SetToken(session)
	c.logger.Info("Vault unlocked")
	return nil
}

// Lock locks the vault server-side and drops all local capabilities.
func (c *Client) Lock(ctx context.Context) error {
	_, err := c.transport.PostJSON(ctx, "/vault/lock", nil)
	if err != nil {
		return fmt.Errorf("lock vault: %w", err)
	}

	c.Cache.Clear()
	c.transport.SetToken("")
	c.logger.Info("Vault locked")
	return nil
}

// Upload stores media bytes on the server, encrypted under the
// unlocked vault key.
func (c *Client) Upload(ctx context.Context, resourceID string, data []byte, contentType string) error {
	path := "/media/" + url.PathEscape(resourceID)
	if err := c.transport.PutMedia(ctx, path, data, contentType); err != nil {
		return fmt.Errorf("upload media: %w", err)
	}
	return nil
}

// UploadThumbnail stores an encrypted thumbnail variant.
func (c *Client) UploadThumbnail(ctx context.Context, resourceID, size string, data []byte) error {
	if size == "" {
		size = "medium"
	}
	path := fmt.Sprintf("/media/%s/thumbnail?size=%s",
		url.PathEscape(resourceID), url.QueryEscape(size))
	if err := c.transport.PutMedia(ctx, path, data, ""); err != nil {
		return fmt.Errorf("upload thumbnail: %w", err)
	}
	return nil
}

// WatchEvents subscribes to vault lifecycle events and clears the
// capability cache whenever the vault locks. It returns when the
// stream ends or ctx is cancelled.
func (c *Client) WatchEvents(ctx context.Context) error {
	ch, err := c.transport.StreamEvents(ctx)
	if err != nil {
		return fmt.Errorf("stream events: %w", err)
	}

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			c.handleEvent(event)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) handleEvent(event models.VaultEvent) {
	c.logger.WithField("type", event.Type).Debug("Vault event")

	if event.Type == models.EventVaultLocked {
		c.Cache.Clear()
		c.logger.Info("Vault locked remotely, capability cache cleared")
	}
}

// Close releases transport resources.
func (c *Client) Close() error {
	return c.transport.Close()
}
