package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

func newReviewFixture(t *testing.T) (*ReviewService, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	repo.addUser(1, "alice")
	repo.addUser(2, "bob")
	repo.addBook(model.Book{ID: 100, Title: "Dune"})
	return NewReviewService(repo, zap.NewNop()), repo
}

func TestReviewService_Lifecycle(t *testing.T) {
	t.Parallel()
	svc, _ := newReviewFixture(t)
	ctx := context.Background()
	rating := 4

	draft, err := svc.CreateReview(ctx, 1, model.CreateReviewRequest{
		BookID:        100,
		Content:       "  spice must flow  ",
		IsRecommended: true,
		Rating:        &rating,
		Tags:          []string{"#sf", "sf", " classic "},
		Draft:         true,
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusDraft, draft.Status)
	require.Nil(t, draft.PublishedAt)
	require.Equal(t, "spice must flow", draft.Content)
	require.Equal(t, []string{"sf", "classic"}, draft.Tags)

	_, err = svc.GetReview(ctx, draft.ID, 2)
	require.Equal(t, errs.NotFound, errs.TypeOf(err))
	_, err = svc.GetReview(ctx, draft.ID, 0)
	require.Equal(t, errs.NotFound, errs.TypeOf(err))
	own, err := svc.GetReview(ctx, draft.ID, 1)
	require.NoError(t, err)
	require.False(t, *own.IsLiked)

	_, err = svc.PublishReview(ctx, 2, draft.ID)
	require.Equal(t, errs.Forbidden, errs.TypeOf(err))

	published, err := svc.PublishReview(ctx, 1, draft.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	again, err := svc.PublishReview(ctx, 1, draft.ID)
	require.NoError(t, err)
	require.Equal(t, published.PublishedAt, again.PublishedAt)

	view, err := svc.GetReview(ctx, draft.ID, 0)
	require.NoError(t, err)
	require.Nil(t, view.IsLiked)
	require.Equal(t, 2, view.ViewCount)
	require.Equal(t, "Dune", view.Book.Title)

	require.Equal(t, errs.Forbidden, errs.TypeOf(svc.DeleteReview(ctx, 2, draft.ID)))
	require.NoError(t, svc.DeleteReview(ctx, 1, draft.ID))
	_, err = svc.GetReview(ctx, draft.ID, 1)
	require.Equal(t, errs.NotFound, errs.TypeOf(err))
	require.Equal(t, errs.NotFound, errs.TypeOf(svc.DeleteReview(ctx, 1, draft.ID)))
}

func TestReviewService_CreatePublished(t *testing.T) {
	t.Parallel()
	svc, _ := newReviewFixture(t)
	rv, err := svc.CreateReview(context.Background(), 2, model.CreateReviewRequest{BookID: 100, Content: "great"})
	require.NoError(t, err)
	require.Equal(t, model.StatusPublished, rv.Status)
	require.NotNil(t, rv.PublishedAt)
	require.NotZero(t, rv.ID)
	require.Equal(t, int64(2), rv.UserID)
}

func TestReviewService_CreateValidation(t *testing.T) {
	t.Parallel()
	svc, _ := newReviewFixture(t)
	ctx := context.Background()
	zero, six := 0, 6
	manyTags := make([]string, 11)
	for i := range manyTags {
		manyTags[i] = strings.Repeat("t", i+1)
	}

	for name, req := range map[string]model.CreateReviewRequest{
		"blank content": {BookID: 100, Content: "   "},
		"long content":  {BookID: 100, Content: strings.Repeat("가", 10001)},
		"rating zero":   {BookID: 100, Content: "ok", Rating: &zero},
		"rating six":    {BookID: 100, Content: "ok", Rating: &six},
		"too many tags": {BookID: 100, Content: "ok", Tags: manyTags},
	} {
		_, err := svc.CreateReview(ctx, 1, req)
		require.Equal(t, errs.InvalidParams, errs.TypeOf(err), name)
	}

	_, err := svc.CreateReview(ctx, 1, model.CreateReviewRequest{BookID: 555, Content: "ok"})
	require.Equal(t, errs.NotFound, errs.TypeOf(err))

	_, err = svc.CreateReview(ctx, 1, model.CreateReviewRequest{BookID: 100, Content: strings.Repeat("가", 10000)})
	require.NoError(t, err)
}
