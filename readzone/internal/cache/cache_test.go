package cache

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

type brokenStore struct{}

var errDown = errors.New("connection refused")

func (brokenStore) Name() string { return "broken" }
func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errDown
}
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error { return errDown }
func (brokenStore) Delete(context.Context, string) error                     { return errDown }
func (brokenStore) DeletePattern(context.Context, *regexp.Regexp) (int, error) {
	return 0, errDown
}
func (brokenStore) Clear(context.Context) (int, error) { return 0, errDown }
func (brokenStore) Len(context.Context) (int, error)   { return 0, errDown }

func TestSearchKey(t *testing.T) {
	t.Parallel()
	require.Equal(t, "search:해리 포터:1:10", SearchKey("  해리 포터 ", 1, 10))
	require.Equal(t, "search:1984:2:50", SearchKey("1984", 2, 50))
	require.Equal(t, "isbn:9788936434120", ISBNKey("9788936434120"))
}

func TestCache_GetSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := New(NewMemoryStore(), zap.NewNop())

	page := model.ExternalPage{
		Books:      []model.Book{{Title: "1984", Authors: []string{"George Orwell"}, Source: model.SourceKakao}},
		TotalCount: 1,
		IsEnd:      true,
	}
	var got model.ExternalPage
	require.False(t, c.Get(ctx, "search:1984:1:10", &got))

	c.Set(ctx, "search:1984:1:10", page, time.Hour)
	require.True(t, c.Get(ctx, "search:1984:1:10", &got))
	require.Equal(t, page, got)

	c.Set(ctx, "expired", page, 0)
	require.False(t, c.Get(ctx, "expired", &got))

	st := c.Stats(ctx)
	require.Equal(t, "memory", st.Backend)
	require.Equal(t, 1, st.Entries)
	require.EqualValues(t, 1, st.Hits)
	require.EqualValues(t, 2, st.Misses)
	require.InDelta(t, 1.0/3.0, st.HitRate, 1e-9)
}

func TestCache_DeletePattern(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := New(NewMemoryStore(), zap.NewNop())
	c.Set(ctx, SearchKey("go", 1, 10), 1, time.Hour)
	c.Set(ctx, SearchKey("rust", 1, 10), 2, time.Hour)
	c.Set(ctx, ISBNKey("9788936434120"), 3, time.Hour)

	n, err := c.DeletePattern(ctx, `^search:`)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = c.DeletePattern(ctx, `([`)
	require.Equal(t, errs.InvalidParams, errs.TypeOf(err))

	require.Equal(t, 1, c.Clear(ctx))
}

func TestCache_StoreFailureIsMiss(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := New(brokenStore{}, zap.NewNop())

	c.Set(ctx, "k", "v", time.Hour)
	var v string
	require.False(t, c.Get(ctx, "k", &v))
	n, err := c.DeletePattern(ctx, ".*")
	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, c.Clear(ctx))
	require.Equal(t, int64(1), c.Stats(ctx).Misses)
}
