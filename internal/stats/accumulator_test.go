package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-6

func TestAccumulatorEmpty(t *testing.T) {
	a := NewAccumulator()
	s := a.Snapshot()
	assert.True(t, s.Empty())
	assert.Equal(t, 0.0, s.Sum)
	assert.Equal(t, 0.0, s.SumOfSquares)
	assert.Equal(t, 0.0, s.Mean())
	assert.Equal(t, 0.0, s.Variance())
}

func TestAccumulatorRunningTotals(t *testing.T) {
	a := NewAccumulator()
	a.Add(-77)
	a.Add(-55)

	s := a.Snapshot()
	require.Equal(t, int64(2), s.Count)
	assert.InDelta(t, -132.0, s.Sum, tol)
	assert.InDelta(t, 77.0*77+55*55, s.SumOfSquares, tol)
	assert.InDelta(t, -77.0, s.Min, tol)
	assert.InDelta(t, -55.0, s.Max, tol)
	assert.InDelta(t, -66.0, s.Mean(), tol)
	assert.InDelta(t, 121.0, s.Variance(), tol)
	assert.InDelta(t, 11.0, s.StdDev(), tol)
}

func TestAccumulatorSingleSampleInitialisesBounds(t *testing.T) {
	a := NewAccumulator()
	a.Add(12.5)
	s := a.Snapshot()
	assert.Equal(t, 12.5, s.Min)
	assert.Equal(t, 12.5, s.Max)
}

func TestSnapshotDoesNotMutate(t *testing.T) {
	a := NewAccumulator()
	a.Add(3)
	first := a.Snapshot()
	second := a.Snapshot()
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), a.Count())
}

func TestSnapshotMerge(t *testing.T) {
	a, b := NewAccumulator(), NewAccumulator()
	a.Add(1)
	a.Add(5)
	b.Add(-2)

	m := a.Snapshot().Merge(b.Snapshot())
	assert.Equal(t, int64(3), m.Count)
	assert.InDelta(t, 4.0, m.Sum, tol)
	assert.InDelta(t, 30.0, m.SumOfSquares, tol)
	assert.Equal(t, -2.0, m.Min)
	assert.Equal(t, 5.0, m.Max)

	assert.Equal(t, b.Snapshot(), Snapshot{}.Merge(b.Snapshot()))
}

func TestAccumulatorRestore(t *testing.T) {
	a := NewAccumulator()
	a.Restore(Snapshot{Count: 2, Sum: 10, SumOfSquares: 52, Min: 4, Max: 6})
	a.Add(8)
	s := a.Snapshot()
	assert.Equal(t, int64(3), s.Count)
	assert.InDelta(t, 18.0, s.Sum, tol)
	assert.Equal(t, 8.0, s.Max)

	a.Restore(Snapshot{Count: 0, Sum: 99})
	assert.True(t, a.Snapshot().Empty())
	assert.Equal(t, 0.0, a.Snapshot().Sum)
}

// Every snapshot taken while writing must be internally consistent.
func TestSnapshotNeverTorn(t *testing.T) {
	a := NewAccumulator()
	const n = 2000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			a.Add(1)
		}
	}()
	for i := 0; i < n; i++ {
		s := a.Snapshot()
		if s.Sum != float64(s.Count) || s.SumOfSquares != float64(s.Count) {
			t.Fatalf("torn snapshot: %+v", s)
		}
	}
	wg.Wait()
	assert.Equal(t, int64(n), a.Count())
}
