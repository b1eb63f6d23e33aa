package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// RateLimiter caps how many messages one socket may send inside a sliding window.
type RateLimiter struct {
	limit  int
	window time.Duration
	recent map[string][]time.Time // oldest first
	mu     sync.Mutex
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		recent: make(map[string][]time.Time),
	}
}

// Allow counts a message from connectionID and reports whether it is within the limit.
// Rejected messages are not counted.
func (r *RateLimiter) Allow(connectionID string) bool {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	stamps := expire(r.recent[connectionID], now.Add(-r.window))
	if len(stamps) >= r.limit {
		r.recent[connectionID] = stamps
		return false
	}
	r.recent[connectionID] = append(stamps, now)
	return true
}

// Cleanup forgets sockets that have been quiet for a whole window.
func (r *RateLimiter) Cleanup() {
	cutoff := time.Now().Add(-r.window)

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, stamps := range r.recent {
		if len(expire(stamps, cutoff)) == 0 {
			delete(r.recent, id)
		}
	}
}

func (r *RateLimiter) RemoveConnection(connectionID string) {
	r.mu.Lock()
	delete(r.recent, connectionID)
	r.mu.Unlock()
}

// expire drops the timestamps at or before cutoff from an ascending slice.
func expire(stamps []time.Time, cutoff time.Time) []time.Time {
	i := sort.Search(len(stamps), func(i int) bool { return stamps[i].After(cutoff) })
	return stamps[i:]
}

// IdleTracker remembers when each socket last sent something, so the
// cleanup task can hang up on players who went silent without closing.
type IdleTracker struct {
	seen map[string]time.Time
	mu   sync.Mutex
}

func NewIdleTracker() *IdleTracker {
	return &IdleTracker{seen: make(map[string]time.Time)}
}

// Touch marks connectionID as active now.
func (t *IdleTracker) Touch(connectionID string) {
	t.mu.Lock()
	t.seen[connectionID] = time.Now()
	t.mu.Unlock()
}

func (t *IdleTracker) Forget(connectionID string) {
	t.mu.Lock()
	delete(t.seen, connectionID)
	t.mu.Unlock()
}

// IdleFor returns the sockets that have not been touched within timeout.
func (t *IdleTracker) IdleFor(timeout time.Duration) []string {
	cutoff := time.Now().Add(-timeout)

	t.mu.Lock()
	defer t.mu.Unlock()

	var idle []string
	for id, last := range t.seen {
		if last.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	return idle
}

var clientMessageTypes = map[string]bool{
	"ping":         true,
	"create_game":  true,
	"reconnect":    true,
	"execute_move": true,
	"next_round":   true,
	"get_state":    true,
	"leave_game":   true,
}

func ValidateMessageType(msgType string) error {
	if !clientMessageTypes[msgType] {
		return fmt.Errorf("INVALID_MESSAGE_TYPE: Unknown message type '%s'", msgType)
	}
	return nil
}

const maxUsernameLength = 20

// ValidateUsername accepts any non-blank name of up to maxUsernameLength runes.
func ValidateUsername(username string) error {
	name := strings.TrimSpace(username)
	if name == "" {
		return fmt.Errorf("USERNAME_INVALID: Username cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxUsernameLength {
		return fmt.Errorf("USERNAME_INVALID: Username too long (max %d characters)", maxUsernameLength)
	}
	return nil
}
