package metrics

import (
	"sort"
	"sync"
	"time"

	"wifiscore/internal/model"
)

// Store keeps the latest snapshot of recently updated records for readers
// that should not walk the live directory. The least recently updated entry
// is evicted once the limit is exceeded.
type Store struct {
	mu        sync.RWMutex
	byKey     map[string]model.RecordSnapshot
	updatedAt map[string]time.Time
	limit     int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 5000
	}
	return &Store{
		byKey:     make(map[string]model.RecordSnapshot),
		updatedAt: make(map[string]time.Time),
		limit:     limit,
	}
}

func StoreKey(kind model.RecordKind, key string) string {
	return string(kind) + "|" + key
}

func (s *Store) Update(snap model.RecordSnapshot) {
	if snap.Key == "" {
		return
	}
	k := StoreKey(snap.Kind, snap.Key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[k] = snap
	s.updatedAt[k] = time.Now().UTC()
	if len(s.byKey) > s.limit {
		s.evictOldest()
	}
}

func (s *Store) Get(kind model.RecordKind, key string) (model.RecordSnapshot, time.Time, bool) {
	k := StoreKey(kind, key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.byKey[k]
	if !ok {
		return model.RecordSnapshot{}, time.Time{}, false
	}
	return snap, s.updatedAt[k], true
}

// List returns snapshots of one kind ordered by key. An empty kind lists all.
func (s *Store) List(kind model.RecordKind) []model.RecordSnapshot {
	s.mu.RLock()
	out := make([]model.RecordSnapshot, 0, len(s.byKey))
	for _, snap := range s.byKey {
		if kind == "" || snap.Kind == kind {
			out = append(out, snap)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

func (s *Store) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, ts := range s.updatedAt {
		if oldestKey == "" || ts.Before(oldest) {
			oldestKey = k
			oldest = ts
		}
	}
	if oldestKey != "" {
		delete(s.byKey, oldestKey)
		delete(s.updatedAt, oldestKey)
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey = make(map[string]model.RecordSnapshot)
	s.updatedAt = make(map[string]time.Time)
}
