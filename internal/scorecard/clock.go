package scorecard

import (
	"sync"
	"time"
)

// Clock supplies boot-relative time for duration math and wall time for
// record bookkeeping.
type Clock interface {
	ElapsedSinceBootMillis() int64
	WallClockMillis() int64
}

// SystemClock measures elapsed time on the monotonic clock from process start.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) ElapsedSinceBootMillis() int64 {
	return time.Since(c.start).Milliseconds()
}

func (c *SystemClock) WallClockMillis() int64 {
	return time.Now().UnixMilli()
}

// ManualClock only moves when told to.
type ManualClock struct {
	mu      sync.Mutex
	elapsed int64
	wallAt0 int64
}

func NewManualClock(wallAtBoot int64) *ManualClock {
	return &ManualClock{wallAt0: wallAtBoot}
}

func (c *ManualClock) Advance(ms int64) {
	c.mu.Lock()
	c.elapsed += ms
	c.mu.Unlock()
}

func (c *ManualClock) Set(ms int64) {
	c.mu.Lock()
	c.elapsed = ms
	c.mu.Unlock()
}

func (c *ManualClock) ElapsedSinceBootMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

func (c *ManualClock) WallClockMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wallAt0 + c.elapsed
}
