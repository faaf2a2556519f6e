// Package stats holds fixed-memory running aggregates of numeric sample
// streams. Raw samples are never retained.
package stats

import (
	"math"
	"sync"
)

// Snapshot is a point-in-time copy of an Accumulator. Min and Max are only
// meaningful when Count > 0.
type Snapshot struct {
	Count        int64
	Sum          float64
	SumOfSquares float64
	Min          float64
	Max          float64
}

func (s Snapshot) Empty() bool {
	return s.Count == 0
}

func (s Snapshot) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Variance is the population variance derived from the running sums.
func (s Snapshot) Variance() float64 {
	if s.Count < 2 {
		return 0
	}
	n := float64(s.Count)
	mean := s.Sum / n
	v := s.SumOfSquares/n - mean*mean
	if v < 0 {
		return 0
	}
	return v
}

func (s Snapshot) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// Merge combines two snapshots as if their samples had been added to one accumulator.
func (s Snapshot) Merge(o Snapshot) Snapshot {
	if s.Count == 0 {
		return o
	}
	if o.Count == 0 {
		return s
	}
	return Snapshot{
		Count:        s.Count + o.Count,
		Sum:          s.Sum + o.Sum,
		SumOfSquares: s.SumOfSquares + o.SumOfSquares,
		Min:          math.Min(s.Min, o.Min),
		Max:          math.Max(s.Max, o.Max),
	}
}

// Accumulator is safe for one writer and any number of concurrent readers.
type Accumulator struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

func (a *Accumulator) Add(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := &a.snap
	if s.Count == 0 {
		s.Min = v
		s.Max = v
	} else {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Count++
	s.Sum += v
	s.SumOfSquares += v * v
}

func (a *Accumulator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

func (a *Accumulator) Count() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap.Count
}

// Restore replaces the accumulated state, used when reloading persisted statistics.
// A snapshot with Count <= 0 resets the accumulator to empty.
func (a *Accumulator) Restore(s Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s.Count <= 0 {
		a.snap = Snapshot{}
		return
	}
	a.snap = s
}
