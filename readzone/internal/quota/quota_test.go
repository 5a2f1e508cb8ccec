package quota

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zerodice0/readzone/readzone/internal/errs"
)

type memStore struct {
	mu   sync.Mutex
	days map[string]int
}

func newMemStore() *memStore { return &memStore{days: map[string]int{}} }

func (s *memStore) Increment(_ context.Context, day string, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.days[day] >= limit {
		return s.days[day], false, nil
	}
	s.days[day]++
	return s.days[day], true, nil
}

func (s *memStore) Used(_ context.Context, day string, _ int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.days[day]; !ok {
		s.days[day] = 0
	}
	return s.days[day], nil
}

func newTestTracker(t *testing.T, limit int, now time.Time) (*Tracker, *memStore) {
	t.Helper()
	store := newMemStore()
	tr, err := NewTracker(store, Config{DailyLimit: limit, WarningRatio: 0.8, Timezone: "Asia/Seoul"}, zap.NewNop())
	require.NoError(t, err)
	tr.now = func() time.Time { return now }
	return tr, store
}

func TestTracker_Exhaustion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tr, _ := newTestTracker(t, 5, time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC))

	for i := 0; i < 5; i++ {
		require.NoError(t, tr.RecordUsage(ctx))
	}
	remaining, err := tr.RemainingQuota(ctx)
	require.NoError(t, err)
	require.Zero(t, remaining)

	err = tr.RecordUsage(ctx)
	require.Equal(t, errs.QuotaExceeded, errs.TypeOf(err))

	u, err := tr.Usage(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, u.Used)
	require.Equal(t, 4, u.WarningThreshold)
	require.True(t, u.IsWarning)
}

func TestTracker_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tr, _ := newTestTracker(t, 50, time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC))

	var ok, exceeded atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 120; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tr.RecordUsage(ctx); err != nil {
				exceeded.Add(1)
				return
			}
			ok.Add(1)
		}()
	}
	wg.Wait()
	require.EqualValues(t, 50, ok.Load())
	require.EqualValues(t, 70, exceeded.Load())
}

func TestTracker_DayBoundary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	// 14:59:59 UTC is 23:59:59 in Seoul.
	now := time.Date(2024, 6, 10, 14, 59, 59, 0, time.UTC)
	tr, store := newTestTracker(t, 1, now)

	require.NoError(t, tr.RecordUsage(ctx))
	require.Error(t, tr.RecordUsage(ctx))

	u, err := tr.Usage(ctx)
	require.NoError(t, err)
	require.Equal(t, "2024-06-10", u.Date)
	require.True(t, u.ResetAt.Equal(time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)))

	tr.now = func() time.Time { return now.Add(time.Second) }
	u, err = tr.Usage(ctx)
	require.NoError(t, err)
	require.Equal(t, "2024-06-11", u.Date)
	require.Equal(t, 1, u.Remaining)
	require.NoError(t, tr.RecordUsage(ctx))
	require.Equal(t, map[string]int{"2024-06-10": 1, "2024-06-11": 1}, store.days)
}

func TestTracker_ZeroLimit(t *testing.T) {
	t.Parallel()
	tr, _ := newTestTracker(t, 0, time.Now())
	require.Equal(t, errs.QuotaExceeded, errs.TypeOf(tr.RecordUsage(context.Background())))
}

func TestNewTracker_BadTimezone(t *testing.T) {
	t.Parallel()
	_, err := NewTracker(newMemStore(), Config{DailyLimit: 1, Timezone: "Mars/Olympus"}, zap.NewNop())
	require.Error(t, err)
}
