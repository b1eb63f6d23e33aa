package server

import (
	"errors"
	"sync"
)

var ErrTokenNotFound = errors.New("TOKEN_NOT_FOUND: Invalid session token")

// SessionInfo is the seat a reconnect token gives back to its holder.
type SessionInfo struct {
	Token     string
	TableCode string
	Seat      int
	Username  string
}

// SessionManager outlives sockets: a player who drops keeps their session
// until they leave or the table is cleaned up.
type SessionManager struct {
	byToken map[string]SessionInfo
	mu      sync.RWMutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{byToken: make(map[string]SessionInfo)}
}

// Save records info under its token, replacing any previous seat for it.
func (sm *SessionManager) Save(info SessionInfo) {
	sm.mu.Lock()
	sm.byToken[info.Token] = info
	sm.mu.Unlock()
}

// Lookup finds the seat held by token.
func (sm *SessionManager) Lookup(token string) (SessionInfo, error) {
	sm.mu.RLock()
	info, ok := sm.byToken[token]
	sm.mu.RUnlock()

	if !ok {
		return SessionInfo{}, ErrTokenNotFound
	}
	return info, nil
}

// Release invalidates token. Releasing an unknown token is a no-op.
func (sm *SessionManager) Release(token string) {
	sm.mu.Lock()
	delete(sm.byToken, token)
	sm.mu.Unlock()
}

// Active lists every seat still redeemable, in no particular order.
func (sm *SessionManager) Active() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	out := make([]SessionInfo, 0, len(sm.byToken))
	for _, info := range sm.byToken {
		out = append(out, info)
	}
	return out
}
