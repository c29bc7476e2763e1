package handlers

import (
	"sync"

	"petreunite-chat/internal/models"
	"petreunite-chat/internal/utils"
)

// Hub tracks open websocket connections per user so a new message can
// nudge the participants' clients to poll early.
type Hub struct {
	mu sync.RWMutex
	// connID -> connection
	conns map[string]*hubConn
}

type hubConn struct {
	userID models.ID
	// websocket connections are not safe for concurrent writes
	mu   sync.Mutex
	conn utils.JSONWriter
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*hubConn)}
}

// Register stores a connection. It returns true if this is the user's
// first open connection.
func (h *Hub) Register(connID string, userID models.ID, conn utils.JSONWriter) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	wasOnline := h.countLocked(userID) > 0
	h.conns[connID] = &hubConn{userID: userID, conn: conn}
	return !wasOnline
}

// Unregister removes a connection. It returns true if that was the
// user's last one.
func (h *Hub) Unregister(connID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	hc, ok := h.conns[connID]
	if !ok {
		return false
	}
	delete(h.conns, connID)
	return h.countLocked(hc.userID) == 0
}

func (h *Hub) IsUserOnline(userID models.ID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked(userID) > 0
}

func (h *Hub) CountUserConnections(userID models.ID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countLocked(userID)
}

func (h *Hub) countLocked(userID models.ID) int {
	n := 0
	for _, hc := range h.conns {
		if hc.userID == userID {
			n++
		}
	}
	return n
}

// SendToUser writes message to every connection of the user and returns
// how many writes succeeded.
func (h *Hub) SendToUser(userID models.ID, message interface{}) int {
	h.mu.RLock()
	targets := make([]*hubConn, 0, 2)
	for _, hc := range h.conns {
		if hc.userID == userID {
			targets = append(targets, hc)
		}
	}
	h.mu.RUnlock()

	sent := 0
	for _, hc := range targets {
		hc.mu.Lock()
		err := utils.SendJSON(hc.conn, message)
		hc.mu.Unlock()
		if err != nil {
			// the read loop notices the broken connection and unregisters it
			utils.LogError(err, "SendToUser")
			continue
		}
		sent++
	}
	return sent
}

// SendToConn writes to a single connection.
func (h *Hub) SendToConn(connID string, message interface{}) error {
	h.mu.RLock()
	hc, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return utils.SendJSON(hc.conn, message)
}

// SendToUsers sends a message to all connections of multiple users
func (h *Hub) SendToUsers(userIDs []models.ID, message interface{}) {
	for _, userID := range userIDs {
		h.SendToUser(userID, message)
	}
}
