package sim

import (
	"sync"
	"time"
)

// ClickLimiter enforces a minimum interval between manual clicks per
// player. Server-authoritative timing: autoclicker scripts get clamped to
// the same ceiling as a human on a good day.
type ClickLimiter struct {
	mu          sync.Mutex
	lastClick   map[int64]time.Time
	minInterval time.Duration
}

func NewClickLimiter(minInterval time.Duration) *ClickLimiter {
	return &ClickLimiter{
		lastClick:   make(map[int64]time.Time),
		minInterval: minInterval,
	}
}

// Allow returns true if enough time has passed since the player's last
// accepted click.
func (cl *ClickLimiter) Allow(playerID int64) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := time.Now()
	last, ok := cl.lastClick[playerID]
	if ok && now.Sub(last) < cl.minInterval {
		return false
	}
	cl.lastClick[playerID] = now
	return true
}

// Reset clears tracking for a player (called on disconnect).
func (cl *ClickLimiter) Reset(playerID int64) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	delete(cl.lastClick, playerID)
}
