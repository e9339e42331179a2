package signal

import (
	"sync"
	"time"

	"github.com/gammazero/deque"

	"github.com/dkeye/lobby/internal/core"
)

// RetryLimiter allows at most limit manual acquisition retries per client
// within a sliding interval.
type RetryLimiter struct {
	mu       sync.Mutex
	history  map[core.SessionID]*deque.Deque[time.Time]
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewRetryLimiter(limit int, interval time.Duration) *RetryLimiter {
	return &RetryLimiter{
		history:  make(map[core.SessionID]*deque.Deque[time.Time]),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *RetryLimiter) Allow(sid core.SessionID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts, ok := rl.history[sid]
	if !ok {
		attempts = new(deque.Deque[time.Time])
		rl.history[sid] = attempts
	}
	for attempts.Len() > 0 && !attempts.Front().After(windowStart) {
		attempts.PopFront()
	}
	if attempts.Len() >= rl.limit {
		return false
	}
	attempts.PushBack(now)
	return true
}

// Forget drops the history of sid.
func (rl *RetryLimiter) Forget(sid core.SessionID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, sid)
}
