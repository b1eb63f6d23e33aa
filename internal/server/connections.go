package server

import (
	"sync"

	"github.com/coder/websocket"
)

type PlayerConnection struct {
	TableCode string
	Seat      int
	Username  string
	Token     string
}

type ConnectionManager struct {
	connections map[string]*websocket.Conn  // connectionID → socket
	players     map[string]PlayerConnection // connectionID → player info
	tokens      map[string]string           // token → connectionID
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		players:     make(map[string]PlayerConnection),
		tokens:      make(map[string]string),
	}
}

func (cm *ConnectionManager) AddConnection(id string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
}

func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if player, exists := cm.players[id]; exists && cm.tokens[player.Token] == id {
		delete(cm.tokens, player.Token)
	}
	delete(cm.connections, id)
	delete(cm.players, id)
}

// AddConnectionWithToken binds token to connectionID and returns the connection
// the token was bound to before, or "" if none. The old connection keeps its
// socket so the caller can tell it that it was replaced.
func (cm *ConnectionManager) AddConnectionWithToken(connectionID string, conn *websocket.Conn, token string) string {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	oldID := cm.tokens[token]
	if oldID == connectionID {
		return oldID
	}
	if oldID != "" {
		delete(cm.players, oldID)
	}

	cm.connections[connectionID] = conn
	player := cm.players[connectionID]
	player.Token = token
	cm.players[connectionID] = player
	cm.tokens[token] = connectionID

	return oldID
}

// SetPlayer records which table and seat the connection is playing.
func (cm *ConnectionManager) SetPlayer(connectionID string, info PlayerConnection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.players[connectionID] = info
	if info.Token != "" {
		cm.tokens[info.Token] = connectionID
	}
}

// MapToken stores token → connectionID mapping
func (cm *ConnectionManager) MapToken(token, connectionID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	player := cm.players[connectionID]
	player.Token = token
	cm.players[connectionID] = player
	cm.tokens[token] = connectionID
}

// UnmapToken removes token mapping
func (cm *ConnectionManager) UnmapToken(token string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connID, exists := cm.tokens[token]; exists {
		delete(cm.players, connID)
		delete(cm.tokens, token)
	}
}

// GetTokenByConnection returns token for a connection
func (cm *ConnectionManager) GetTokenByConnection(connectionID string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if player, exists := cm.players[connectionID]; exists {
		return player.Token
	}
	return ""
}

// GetConnectionByToken returns connectionID for a token
func (cm *ConnectionManager) GetConnectionByToken(token string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return cm.tokens[token]
}

// GetConnection returns websocket for connectionID
func (cm *ConnectionManager) GetConnection(connectionID string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return cm.connections[connectionID]
}

// Snapshot returns every open socket keyed by connection id.
func (cm *ConnectionManager) Snapshot() map[string]*websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	conns := make(map[string]*websocket.Conn, len(cm.connections))
	for id, conn := range cm.connections {
		conns[id] = conn
	}
	return conns
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}
