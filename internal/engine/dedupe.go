package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"wifiscore/internal/model"
)

const dedupeCompactAt = 10000

// DedupeCache remembers event hashes for a ttl.
type DedupeCache struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func NewDedupeCache() *DedupeCache {
	return &DedupeCache{items: make(map[string]time.Time)}
}

func (d *DedupeCache) Seen(key string, now time.Time, ttl time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ts, ok := d.items[key]; ok {
		if now.Sub(ts) <= ttl {
			return true
		}
	}
	d.items[key] = now
	if len(d.items) > dedupeCompactAt {
		d.compact(now, ttl)
	}
	return false
}

func (d *DedupeCache) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

func (d *DedupeCache) compact(now time.Time, ttl time.Duration) {
	for k, ts := range d.items {
		if now.Sub(ts) > ttl {
			delete(d.items, k)
		}
	}
}

func hashEvent(ev model.LifecycleEvent) string {
	parts := []string{
		string(ev.Call),
		ev.Obs.SSID,
		ev.Obs.BSSID,
		strconv.Itoa(ev.Obs.Frequency),
		strconv.Itoa(ev.Obs.RSSI),
		strconv.Itoa(ev.Obs.LinkSpeed),
		strconv.FormatInt(ev.ElapsedMs, 10),
		strconv.FormatBool(ev.HasElapsed),
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])
}
