package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample stands in for a buffered body state row.
type sample struct {
	Tick uint64
	Body string
}

func ticks(items []sample) []uint64 {
	out := make([]uint64, len(items))
	for i, s := range items {
		out[i] = s.Tick
	}
	return out
}

func TestQueue_PushPop(t *testing.T) {
	q := New[sample]()
	assert.True(t, q.Empty())
	assert.Equal(t, sample{}, q.Pop(), "empty pop yields zero value")

	q.Push(sample{Tick: 1, Body: "target"})
	q.Push(sample{Tick: 2, Body: "ship"}, sample{Tick: 3, Body: "ship"})
	assert.Equal(t, 3, q.Len())

	assert.Equal(t, sample{Tick: 1, Body: "target"}, q.Pop())
	assert.Equal(t, 2, q.Len())
	assert.False(t, q.Empty())
}

func TestQueue_ClearAndGetAndEmpty(t *testing.T) {
	q := New[sample]()
	q.Push(sample{Tick: 1}, sample{Tick: 2}, sample{Tick: 3})

	assert.Equal(t, []uint64{1, 2, 3}, ticks(q.GetAndEmpty()))
	assert.True(t, q.Empty())

	q.Push(sample{Tick: 4})
	q.Clear()
	assert.Zero(t, q.Len())
	assert.Empty(t, q.GetAndEmpty())
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[sample]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(tick uint64) {
			defer wg.Done()
			q.Push(sample{Tick: tick})
		}(uint64(i))
	}
	wg.Wait()
	require.Equal(t, 100, q.Len())

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Pop()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, q.Len())
}

func TestQueue_ConcurrentGetAndEmpty(t *testing.T) {
	q := New[int]()
	for i := 0; i < 100; i++ {
		q.Push(i)
	}

	var wg sync.WaitGroup
	results := make(chan []int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- q.GetAndEmpty()
		}()
	}
	wg.Wait()
	close(results)

	total := 0
	for r := range results {
		total += len(r)
	}
	assert.Equal(t, 100, total, "each item is handed out exactly once")
}

func TestQueue_BoundedDropsOldest(t *testing.T) {
	q := NewBounded[int](3)
	q.Push(1, 2)
	q.Push(3, 4, 5)

	assert.Equal(t, uint64(2), q.Dropped())
	assert.Equal(t, []int{3, 4, 5}, q.GetAndEmpty())
}

func TestQueue_Requeue(t *testing.T) {
	tests := []struct {
		name        string
		limit       int
		want        []int
		wantDropped uint64
	}{
		{"unbounded keeps order", 0, []int{1, 2, 3, 4, 5}, 0},
		{"bounded drops oldest of batch", 3, []int{3, 4, 5}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewBounded[int](tt.limit)
			q.Push(1, 2, 3)
			batch := q.GetAndEmpty()
			q.Push(4, 5)

			q.Requeue(batch)

			assert.Equal(t, tt.want, q.GetAndEmpty())
			assert.Equal(t, tt.wantDropped, q.Dropped())
		})
	}
}
