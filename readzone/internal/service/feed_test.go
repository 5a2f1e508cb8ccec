package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zerodice0/readzone/readzone/internal/cursor"
	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

var feedEpoch = time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

func newFeedFixture(t *testing.T) (*FeedService, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	codec, err := cursor.NewCodec("feed-test")
	require.NoError(t, err)
	repo.addUser(1, "alice")
	repo.addUser(2, "bob")
	repo.addUser(3, "carol")
	repo.addBook(model.Book{ID: 100, Title: "Dune", Authors: []string{"Frank Herbert"}})
	return NewFeedService(repo, codec, zap.NewNop()), repo
}

func publish(repo *fakeRepo, id, userID int64, at time.Time, likes int) {
	repo.addReview(model.Review{
		ID:          id,
		UserID:      userID,
		BookID:      100,
		Content:     "review",
		Status:      model.StatusPublished,
		PublishedAt: &at,
		LikeCount:   likes,
	})
}

func collect(t *testing.T, svc *FeedService, tab model.FeedTab, limit int, viewer int64) []int64 {
	t.Helper()
	var (
		ids    []int64
		cursor string
	)
	for i := 0; i < 100; i++ {
		page, err := svc.Feed(context.Background(), model.FeedRequest{Tab: tab, Cursor: cursor, Limit: limit}, viewer)
		require.NoError(t, err)
		require.LessOrEqual(t, len(page.Items), limit)
		for _, it := range page.Items {
			ids = append(ids, it.ID)
		}
		if !page.HasMore {
			require.Nil(t, page.NextCursor)
			return ids
		}
		require.NotNil(t, page.NextCursor)
		cursor = *page.NextCursor
	}
	t.Fatal("feed did not terminate")
	return nil
}

func TestFeedService_LatestPagesWithoutGaps(t *testing.T) {
	t.Parallel()
	svc, repo := newFeedFixture(t)
	// 11 and 12 share a timestamp; the id breaks the tie.
	publish(repo, 10, 1, feedEpoch, 0)
	publish(repo, 11, 2, feedEpoch.Add(time.Minute), 0)
	publish(repo, 12, 3, feedEpoch.Add(time.Minute), 0)
	publish(repo, 13, 1, feedEpoch.Add(2*time.Minute), 0)
	publish(repo, 14, 2, feedEpoch.Add(3*time.Minute), 0)
	repo.addReview(model.Review{ID: 15, UserID: 1, BookID: 100, Status: model.StatusDraft})

	require.Equal(t, []int64{14, 13, 12, 11, 10}, collect(t, svc, model.TabLatest, 2, 0))
}

func TestFeedService_NewReviewsDoNotShiftCursor(t *testing.T) {
	t.Parallel()
	svc, repo := newFeedFixture(t)
	for i := int64(0); i < 5; i++ {
		publish(repo, 20+i, 1, feedEpoch.Add(time.Duration(i)*time.Minute), 0)
	}
	ctx := context.Background()

	first, err := svc.Feed(ctx, model.FeedRequest{Tab: model.TabLatest, Limit: 2}, 0)
	require.NoError(t, err)
	require.Equal(t, int64(24), first.Items[0].ID)
	require.Equal(t, int64(23), first.Items[1].ID)

	publish(repo, 99, 2, feedEpoch.Add(time.Hour), 0)

	second, err := svc.Feed(ctx, model.FeedRequest{Tab: model.TabLatest, Limit: 2, Cursor: *first.NextCursor}, 0)
	require.NoError(t, err)
	require.Equal(t, int64(22), second.Items[0].ID)
	require.Equal(t, int64(21), second.Items[1].ID)

	again, err := svc.Feed(ctx, model.FeedRequest{Tab: model.TabLatest, Limit: 2, Cursor: *first.NextCursor}, 0)
	require.NoError(t, err)
	require.Equal(t, second.Items[0].ID, again.Items[0].ID)
}

func TestFeedService_Recommended(t *testing.T) {
	t.Parallel()
	svc, repo := newFeedFixture(t)
	publish(repo, 30, 1, feedEpoch, 5)
	publish(repo, 31, 2, feedEpoch.Add(time.Minute), 1)
	publish(repo, 32, 3, feedEpoch.Add(2*time.Minute), 5)
	publish(repo, 33, 1, feedEpoch.Add(3*time.Minute), 0)

	require.Equal(t, []int64{32, 30, 31, 33}, collect(t, svc, "", 1, 0))
}

func TestFeedService_Following(t *testing.T) {
	t.Parallel()
	svc, repo := newFeedFixture(t)
	publish(repo, 40, 2, feedEpoch, 0)
	publish(repo, 41, 3, feedEpoch.Add(time.Minute), 0)
	publish(repo, 42, 2, feedEpoch.Add(2*time.Minute), 0)
	repo.follows[pair{1, 2}] = struct{}{}

	_, err := svc.Feed(context.Background(), model.FeedRequest{Tab: model.TabFollowing}, 0)
	require.Equal(t, errs.Unauthorized, errs.TypeOf(err))

	require.Equal(t, []int64{42, 40}, collect(t, svc, model.TabFollowing, 20, 1))
	require.Empty(t, collect(t, svc, model.TabFollowing, 20, 3))
}

func TestFeedService_ViewerState(t *testing.T) {
	t.Parallel()
	svc, repo := newFeedFixture(t)
	publish(repo, 50, 2, feedEpoch, 0)
	publish(repo, 51, 3, feedEpoch.Add(time.Minute), 0)
	repo.likes[pair{1, 50}] = struct{}{}
	repo.bookmarks[pair{1, 51}] = struct{}{}
	repo.likes[pair{2, 51}] = struct{}{}

	anon, err := svc.Feed(context.Background(), model.FeedRequest{Tab: model.TabLatest}, 0)
	require.NoError(t, err)
	for _, it := range anon.Items {
		require.Nil(t, it.IsLiked)
		require.Nil(t, it.IsBookmarked)
	}

	page, err := svc.Feed(context.Background(), model.FeedRequest{Tab: model.TabLatest}, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	byID := map[int64]model.ReviewView{}
	for _, it := range page.Items {
		byID[it.ID] = it
	}
	require.False(t, *byID[51].IsLiked)
	require.True(t, *byID[51].IsBookmarked)
	require.True(t, *byID[50].IsLiked)
	require.False(t, *byID[50].IsBookmarked)
	require.Equal(t, "Dune", byID[50].Book.Title)
	require.Equal(t, "bob", byID[50].Author.Username)
}

func TestFeedService_Validation(t *testing.T) {
	t.Parallel()
	svc, repo := newFeedFixture(t)
	publish(repo, 60, 1, feedEpoch, 0)
	publish(repo, 61, 1, feedEpoch.Add(time.Minute), 0)
	ctx := context.Background()

	for _, req := range []model.FeedRequest{
		{Tab: "popular"},
		{Tab: model.TabLatest, Limit: 51},
		{Tab: model.TabLatest, Limit: -1},
		{Tab: model.TabLatest, Cursor: "not-a-cursor"},
	} {
		_, err := svc.Feed(ctx, req, 0)
		require.Equal(t, errs.InvalidParams, errs.TypeOf(err), "%+v", req)
	}

	latest, err := svc.Feed(ctx, model.FeedRequest{Tab: model.TabLatest, Limit: 1}, 0)
	require.NoError(t, err)
	_, err = svc.Feed(ctx, model.FeedRequest{Tab: model.TabRecommended, Cursor: *latest.NextCursor}, 0)
	require.Equal(t, errs.InvalidParams, errs.TypeOf(err))

	page, err := svc.Feed(ctx, model.FeedRequest{}, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.False(t, page.HasMore)
	require.Nil(t, page.NextCursor)
}
