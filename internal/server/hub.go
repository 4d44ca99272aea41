package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mediavault-app/mediavault/internal/events"
	"github.com/mediavault-app/mediavault/internal/models"
)

// EventHub pushes vault lifecycle events to connected clients over
// websockets. Lock notification is an explicit broadcast from the lock
// path, not an ambient signal: the hub is a registered lock observer
// and runs before the lock response is sent.
type EventHub struct {
	logger   *events.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*websocket.Conn]string // conn -> ownerID
	closed bool
}

// NewEventHub creates an empty hub.
func NewEventHub(logger *events.Logger) *EventHub {
	return &EventHub{
		logger: logger.WithField("component", "event_hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: make(map[*websocket.Conn]string),
	}
}

// Subscribe upgrades the request and registers the connection for the
// given owner's events. Blocks until the peer disconnects.
func (h *EventHub) Subscribe(w http.ResponseWriter, r *http.Request, ownerID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.conns[conn] = ownerID
	h.mu.Unlock()

	h.logger.WithField("owner_id", ownerID).Debug("Event subscriber connected")

	// Drain reads so pings and close frames are processed; the hub
	// never expects client messages.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// Broadcast sends an event to every subscriber of the given owner. An
// empty ownerID reaches all subscribers.
func (h *EventHub) Broadcast(ownerID string, event models.VaultEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, owner := range h.conns {
		if ownerID != "" && owner != ownerID {
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			h.logger.WithError(err).Debug("Event write failed, dropping subscriber")
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// OnVaultLock implements vault.LockObserver.
func (h *EventHub) OnVaultLock(sessionID, ownerID string) {
	h.Broadcast(ownerID, models.VaultEvent{
		Type:    models.EventVaultLocked,
		OwnerID: ownerID,
		At:      time.Now(),
	})
}

// Close disconnects every subscriber.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}
