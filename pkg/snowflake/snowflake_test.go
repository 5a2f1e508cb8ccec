package snowflake

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenID_Unique(t *testing.T) {
	const n = 10000
	ids := make(map[int64]struct{}, n)
	for i := 0; i < n; i++ {
		id := GenID()
		require.Positive(t, id)
		_, exists := ids[id]
		require.False(t, exists, "duplicate id %d", id)
		ids[id] = struct{}{}
	}
}

func TestGenID_Concurrent(t *testing.T) {
	const (
		goroutines = 16
		perRoutine = 2000
	)
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int64]struct{}, goroutines*perRoutine)
	)
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perRoutine; i++ {
				id := GenID()
				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, ids, goroutines*perRoutine)
}

func TestGenID_Increasing(t *testing.T) {
	prev := GenID()
	for i := 0; i < 1000; i++ {
		curr := GenID()
		require.Greater(t, curr, prev)
		prev = curr
	}
}
