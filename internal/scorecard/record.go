package scorecard

import (
	"sort"
	"sync"
	"time"

	"wifiscore/internal/model"
)

// Record accumulates statistics for one access point or one network.
// The ID is fixed at creation and never reused within a Directory.
type Record struct {
	id   int64
	kind model.RecordKind
	key  string

	mu        sync.RWMutex
	ssid      string
	bssid     string
	updatedAt int64
	buckets   map[BucketKey]*Bucket
}

func newRecord(id int64, kind model.RecordKind, key string) *Record {
	return &Record{
		id:      id,
		kind:    kind,
		key:     key,
		buckets: make(map[BucketKey]*Bucket),
	}
}

func (r *Record) ID() int64 {
	return r.id
}

func (r *Record) Kind() model.RecordKind {
	return r.kind
}

// Key is the BSSID or SSID the record is indexed by.
func (r *Record) Key() string {
	return r.key
}

// SSID is the network name most recently reported alongside this record.
func (r *Record) SSID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ssid
}

// BSSID is the access point most recently reported alongside this record.
func (r *Record) BSSID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bssid
}

// UpdatedAt is the wall-clock time of the last recorded sample.
func (r *Record) UpdatedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.updatedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(r.updatedAt).UTC()
}

func (r *Record) note(ssid, bssid string, wallMs int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ssid != "" {
		r.ssid = ssid
	}
	if bssid != "" {
		r.bssid = bssid
	}
	if wallMs > r.updatedAt {
		r.updatedAt = wallMs
	}
}

// Bucket returns the bucket for (event, frequency), creating it on first use.
// Repeated calls with the same key return the same *Bucket.
func (r *Record) Bucket(event model.EventKind, frequency int) *Bucket {
	key := BucketKey{Event: event, Frequency: frequency}
	r.mu.RLock()
	b, ok := r.buckets[key]
	r.mu.RUnlock()
	if ok {
		return b
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.buckets[key]; ok {
		return b
	}
	b = newBucket(key)
	r.buckets[key] = b
	return b
}

// LookupBucket never creates.
func (r *Record) LookupBucket(event model.EventKind, frequency int) (*Bucket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buckets[BucketKey{Event: event, Frequency: frequency}]
	return b, ok
}

// Buckets returns all buckets ordered by event then frequency.
func (r *Record) Buckets() []*Bucket {
	r.mu.RLock()
	out := make([]*Bucket, 0, len(r.buckets))
	for _, b := range r.buckets {
		out = append(out, b)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].key, out[j].key
		if a.Event != b.Event {
			return a.Event < b.Event
		}
		return a.Frequency < b.Frequency
	})
	return out
}

func (r *Record) Snapshot() model.RecordSnapshot {
	buckets := r.Buckets()
	snap := model.RecordSnapshot{
		ID:        r.id,
		Kind:      r.kind,
		Key:       r.key,
		SSID:      r.SSID(),
		BSSID:     r.BSSID(),
		UpdatedAt: r.UpdatedAt(),
		Signals:   make([]model.SignalSnapshot, 0, len(buckets)),
	}
	for _, b := range buckets {
		snap.Signals = append(snap.Signals, b.snapshot())
	}
	return snap
}

func (r *Record) restore(snap model.RecordSnapshot) {
	r.mu.Lock()
	r.ssid = snap.SSID
	r.bssid = snap.BSSID
	if !snap.UpdatedAt.IsZero() {
		r.updatedAt = snap.UpdatedAt.UnixMilli()
	}
	r.mu.Unlock()
	for _, sig := range snap.Signals {
		if !sig.Event.Valid() {
			continue
		}
		b := r.Bucket(sig.Event, sig.Frequency)
		for m, s := range sig.Metrics {
			if !m.Valid() {
				continue
			}
			b.Accumulator(m).Restore(fromModel(s))
		}
	}
}
