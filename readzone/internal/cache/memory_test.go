package cache

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestMemoryStore() (*MemoryStore, *clock) {
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = c.now
	return s, c
}

func TestMemoryStore_TTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, clk := newTestMemoryStore()

	require.NoError(t, s.Set(ctx, "zero", []byte("v"), 0))
	_, ok, err := s.Get(ctx, "zero")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("v1"), time.Minute))
	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), got)

	require.NoError(t, s.Set(ctx, "k", []byte("v2"), time.Minute))
	got, _, _ = s.Get(ctx, "k")
	require.Equal(t, []byte("v2"), got)

	clk.advance(time.Minute)
	_, ok, _ = s.Get(ctx, "k")
	require.False(t, ok)
	require.Equal(t, 0, s.m.Count())
}

func TestMemoryStore_Sweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, clk := newTestMemoryStore()

	require.NoError(t, s.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, s.Set(ctx, "long", []byte("2"), time.Hour))
	n, _ := s.Len(ctx)
	require.Equal(t, 2, n)

	clk.advance(time.Minute)
	n, _ = s.Len(ctx)
	require.Equal(t, 1, n)
	require.Equal(t, 1, s.Sweep())
	require.Equal(t, 1, s.m.Count())
}

func TestMemoryStore_DeletePatternAndClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newTestMemoryStore()

	for _, k := range []string{"search:go:1:10", "search:go:2:10", "isbn:9788936434120"} {
		require.NoError(t, s.Set(ctx, k, []byte("x"), time.Hour))
	}
	n, err := s.DeletePattern(ctx, regexp.MustCompile(`^search:`))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, ok, _ := s.Get(ctx, "isbn:9788936434120")
	require.True(t, ok)

	n, err = s.Clear(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, _ = s.Len(ctx)
	require.Zero(t, n)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = s.Set(ctx, "hot", []byte("v"), time.Minute)
				_, _, _ = s.Get(ctx, "hot")
				s.Sweep()
			}
		}()
	}
	wg.Wait()
	_, ok, _ := s.Get(ctx, "hot")
	require.True(t, ok)
}
