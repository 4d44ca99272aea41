package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mediavault-app/mediavault/internal/events"
	"github.com/mediavault-app/mediavault/internal/models"
)

// EventClient receives vault lifecycle events over WebSocket.
type EventClient struct {
	url    string
	token  string
	logger *events.Logger

	// Connection state
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	// Channels
	events chan models.VaultEvent
	errors chan error
	done   chan struct{}

	// Heartbeat
	pingInterval time.Duration
	pongTimeout  time.Duration
}

// NewEventClient creates a WebSocket event subscriber.
func NewEventClient(baseURL, token string, logger *events.Logger) *EventClient {
	wsURL := baseURL
	if len(wsURL) > 4 && wsURL[:4] == "http" {
		wsURL = "ws" + wsURL[4:]
	}
	wsURL += "/vault/events"

	return &EventClient{
		url:          wsURL,
		token:        token,
		logger:       logger.WithField("component", "event_client"),
		events:       make(chan models.VaultEvent, 16),
		errors:       make(chan error, 4),
		done:         make(chan struct{}),
		pingInterval: 30 * time.Second,
		pongTimeout:  10 * time.Second,
	}
}

// Connect establishes the WebSocket connection.
func (c *EventClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return fmt.Errorf("already connected")
	}

	c.logger.WithField("url", c.url).Info("Connecting to event stream")

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+c.token)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, c.url, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("event stream connect failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("event stream connect failed: %w", err)
	}

	c.conn = conn
	c.closed = false

	go c.readLoop()
	go c.pingLoop()

	c.logger.Info("Event stream connected")
	return nil
}

// Events returns the event channel. It closes when the stream ends.
func (c *EventClient) Events() <-chan models.VaultEvent {
	return c.events
}

// Errors returns the error channel.
func (c *EventClient) Errors() <-chan error {
	return c.errors
}

// Close closes the WebSocket connection.
func (c *EventClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)

	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

		err := c.conn.Close()
		c.conn = nil
		return err
	}

	return nil
}

// readLoop reads events from the WebSocket.
func (c *EventClient) readLoop() {
	defer func() {
		c.Close()
		close(c.events)
		close(c.errors)
	}()

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(c.pongTimeout + c.pingInterval))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(c.pongTimeout + c.pingInterval))
			return nil
		})

		var event models.VaultEvent
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				c.logger.WithError(err).Error("Event stream read error")
				c.errors <- err
			}
			return
		}

		c.logger.WithField("type", event.Type).Debug("Received vault event")

		select {
		case c.events <- event:
		case <-c.done:
			return
		}
	}
}

// pingLoop sends periodic pings.
func (c *EventClient) pingLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()

			if conn == nil {
				return
			}

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.WithError(err).Error("Ping failed")
				return
			}

		case <-c.done:
			return
		}
	}
}
