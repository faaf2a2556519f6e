package scorecard

import (
	"sort"
	"sync"

	"wifiscore/internal/model"
	"wifiscore/internal/stats"
)

// BucketKey identifies one bucket inside a record.
type BucketKey struct {
	Event     model.EventKind
	Frequency int
}

// Bucket holds one accumulator per metric observed for a (event, frequency) pair.
type Bucket struct {
	key     BucketKey
	mu      sync.RWMutex
	metrics map[model.Metric]*stats.Accumulator
}

func newBucket(key BucketKey) *Bucket {
	return &Bucket{key: key, metrics: make(map[model.Metric]*stats.Accumulator, 3)}
}

func (b *Bucket) Key() BucketKey {
	return b.key
}

// Accumulator returns the accumulator for metric, creating an empty one on first use.
func (b *Bucket) Accumulator(metric model.Metric) *stats.Accumulator {
	b.mu.RLock()
	acc, ok := b.metrics[metric]
	b.mu.RUnlock()
	if ok {
		return acc
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if acc, ok := b.metrics[metric]; ok {
		return acc
	}
	acc = stats.NewAccumulator()
	b.metrics[metric] = acc
	return acc
}

// Snapshot reports ok=false when the metric was never created for this bucket.
func (b *Bucket) Snapshot(metric model.Metric) (stats.Snapshot, bool) {
	b.mu.RLock()
	acc, ok := b.metrics[metric]
	b.mu.RUnlock()
	if !ok {
		return stats.Snapshot{}, false
	}
	return acc.Snapshot(), true
}

// Metrics lists the metrics present, in enum order.
func (b *Bucket) Metrics() []model.Metric {
	b.mu.RLock()
	out := make([]model.Metric, 0, len(b.metrics))
	for m := range b.metrics {
		out = append(out, m)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *Bucket) snapshot() model.SignalSnapshot {
	out := model.SignalSnapshot{
		Event:     b.key.Event,
		Frequency: b.key.Frequency,
		Metrics:   make(map[model.Metric]model.StatSnapshot),
	}
	for _, m := range b.Metrics() {
		s, _ := b.Snapshot(m)
		out.Metrics[m] = toModel(s)
	}
	return out
}

func toModel(s stats.Snapshot) model.StatSnapshot {
	return model.StatSnapshot{
		Count:        s.Count,
		Sum:          s.Sum,
		SumOfSquares: s.SumOfSquares,
		Min:          s.Min,
		Max:          s.Max,
	}
}

func fromModel(s model.StatSnapshot) stats.Snapshot {
	return stats.Snapshot{
		Count:        s.Count,
		Sum:          s.Sum,
		SumOfSquares: s.SumOfSquares,
		Min:          s.Min,
		Max:          s.Max,
	}
}
