package signal

import (
	"sync"
	"time"

	"github.com/dkeye/Proctor/internal/domain"
)

// RateLimiter is a sliding-window limit on inbound messages per connection.
type RateLimiter struct {
	mu       sync.Mutex
	history  map[domain.ConnID][]time.Time
	limit    int
	interval time.Duration
	nowF     func() time.Time
}

func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		history:  make(map[domain.ConnID][]time.Time),
		limit:    limit,
		interval: interval,
		nowF:     time.Now,
	}
}

func (rl *RateLimiter) Allow(conn domain.ConnID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.nowF()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[conn]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[conn] = fresh
		return false
	}
	rl.history[conn] = append(fresh, now)
	return true
}

// Forget drops conn's history once it disconnects.
func (rl *RateLimiter) Forget(conn domain.ConnID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, conn)
}
