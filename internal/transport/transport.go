package transport

import (
	"context"

	"github.com/mediavault-app/mediavault/internal/config"
	"github.com/mediavault-app/mediavault/internal/events"
	"github.com/mediavault-app/mediavault/internal/models"
)

// Transport is the client's view of the vault server.
type Transport interface {
	// HTTP methods
	PostJSON(ctx context.Context, path string, payload interface{}) (map[string]interface{}, error)
	FetchMedia(ctx context.Context, path string) ([]byte, error)
	PutMedia(ctx context.Context, path string, data []byte, contentType string) error

	// StreamEvents subscribes to vault lifecycle events over WebSocket.
	StreamEvents(ctx context.Context) (<-chan models.VaultEvent, error)

	// Session token
	SetToken(token string)
	GetToken() string

	// Lifecycle
	Close() error
}

// DefaultTransport implements Transport over HTTP plus a WebSocket
// event stream.
type DefaultTransport struct {
	httpClient  *HTTPClient
	eventClient *EventClient
	logger      *events.Logger
}

// NewTransport creates a transport instance.
func NewTransport(cfg *config.APIConfig, logger *events.Logger) Transport {
	return &DefaultTransport{
		httpClient: NewHTTPClient(cfg, logger),
		logger:     logger,
	}
}

// PostJSON forwards to the HTTP client.
func (t *DefaultTransport) PostJSON(ctx context.Context, path string, payload interface{}) (map[string]interface{}, error) {
	return t.httpClient.PostJSON(ctx, path, payload)
}

// FetchMedia forwards to the HTTP client.
func (t *DefaultTransport) FetchMedia(ctx context.Context, path string) ([]byte, error) {
	return t.httpClient.FetchMedia(ctx, path)
}

// PutMedia forwards to the HTTP client.
func (t *DefaultTransport) PutMedia(ctx context.Context, path string, data []byte, contentType string) error {
	return t.httpClient.PutMedia(ctx, path, data, contentType)
}

// StreamEvents opens the event stream for the current session.
func (t *DefaultTransport) StreamEvents(ctx context.Context) (<-chan models.VaultEvent, error) {
	t.eventClient = NewEventClient(t.httpClient.baseURL, t.httpClient.token, t.logger)

	if err := t.eventClient.Connect(ctx); err != nil {
		return nil, err
	}

	go func() {
		for err := range t.eventClient.Errors() {
			t.logger.WithError(err).Error("Event stream error")
		}
	}()

	return t.eventClient.Events(), nil
}

// SetToken sets the session token.
func (t *DefaultTransport) SetToken(token string) {
	t.httpClient.SetToken(token)
}

// GetToken returns the current session token.
func (t *DefaultTransport) GetToken() string {
	return t.httpClient.GetToken()
}

// Close closes all connections.
func (t *DefaultTransport) Close() error {
	if t.eventClient != nil {
		return t.eventClient.Close()
	}
	return nil
}
