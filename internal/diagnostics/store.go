package diagnostics

import (
	"sync"
	"time"

	"wifiscore/internal/model"
)

// Store is a bounded ring of the most recent diagnostics.
type Store struct {
	mu    sync.RWMutex
	buf   []model.Diagnostic
	limit int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 1000
	}
	return &Store{limit: limit}
}

func (s *Store) Add(d model.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) < s.limit {
		s.buf = append(s.buf, d)
		return
	}
	copy(s.buf, s.buf[1:])
	s.buf[len(s.buf)-1] = d
}

// List returns up to limit of the newest entries, oldest first. limit <= 0 returns all.
func (s *Store) List(limit int) []model.Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]model.Diagnostic, limit)
	copy(out, s.buf[len(s.buf)-limit:])
	return out
}

func (s *Store) Since(ts time.Time) []model.Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Diagnostic, 0)
	for _, d := range s.buf {
		if !d.Timestamp.Before(ts) {
			out = append(out, d)
		}
	}
	return out
}

// Session returns every retained entry for one connection attempt.
func (s *Store) Session(id string) []model.Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Diagnostic
	for _, d := range s.buf {
		if d.Session == id {
			out = append(out, d)
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buf)
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
}
