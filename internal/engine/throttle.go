package engine

import (
	"sync"
	"time"
)

// Throttle lets a key through at most once per interval.
type Throttle struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

func NewThrottle() *Throttle {
	return &Throttle{last: make(map[string]time.Time), now: time.Now}
}

func (t *Throttle) Allow(key string, interval time.Duration) bool {
	if interval <= 0 {
		return true
	}
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if ts, ok := t.last[key]; ok && now.Sub(ts) < interval {
		return false
	}
	t.last[key] = now
	return true
}

// Forget clears the key so the next Allow passes.
func (t *Throttle) Forget(key string) {
	t.mu.Lock()
	delete(t.last, key)
	t.mu.Unlock()
}
