package scheduler

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zerodice0/readzone/readzone/internal/cache"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

type usageFunc func(ctx context.Context) (model.Usage, error)

func (f usageFunc) Usage(ctx context.Context) (model.Usage, error) { return f(ctx) }

type countingSweeper struct{ calls atomic.Int32 }

func (s *countingSweeper) Sweep() int {
	s.calls.Add(1)
	return 2
}

func TestQuotaWarningJob(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	quotaWarningJob(usageFunc(func(context.Context) (model.Usage, error) {
		return model.Usage{Used: 10, Limit: 100, Remaining: 90}, nil
	}), log)()
	require.Zero(t, logs.Len())

	quotaWarningJob(usageFunc(func(context.Context) (model.Usage, error) {
		return model.Usage{Date: "2024-05-01", Used: 85, Limit: 100, Remaining: 15, WarningThreshold: 80, IsWarning: true}, nil
	}), log)()
	warn := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warn, 1)
	require.Equal(t, int64(15), warn[0].ContextMap()["remaining"])

	quotaWarningJob(usageFunc(func(context.Context) (model.Usage, error) {
		return model.Usage{}, errors.New("db down")
	}), log)()
	require.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestSweepJob(t *testing.T) {
	store := cache.NewMemoryStore()
	require.NotPanics(t, sweepJob(store, zap.NewNop()))

	s := &countingSweeper{}
	sweepJob(s, zap.NewNop())()
	require.EqualValues(t, 1, s.calls.Load())
}

func TestScheduler_Register(t *testing.T) {
	s := New(zap.NewNop())
	require.NoError(t, s.AddSweep("@every 10m", &countingSweeper{}))
	require.NoError(t, s.AddQuotaWarning("*/5 * * * *", usageFunc(func(context.Context) (model.Usage, error) {
		return model.Usage{}, nil
	})))
	require.Error(t, s.AddSweep("every ten minutes", &countingSweeper{}))

	s.Start()
	s.Stop(context.Background())
}
