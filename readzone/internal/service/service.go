package service

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/kakao"
	"github.com/zerodice0/readzone/readzone/internal/model"
	"github.com/zerodice0/readzone/readzone/internal/repository"
)

type BookRepository interface {
	SearchBooks(ctx context.Context, query string, offset, limit int) ([]model.Book, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	GetBookByISBN(ctx context.Context, isbn string) (model.Book, error)
	CreateBook(ctx context.Context, b model.Book) (model.Book, bool, error)
}

type BookProvider interface {
	Search(ctx context.Context, p kakao.SearchParams) (model.ExternalPage, error)
	SearchByISBN(ctx context.Context, isbn string) (*model.Book, error)
}

type QuotaTracker interface {
	RecordUsage(ctx context.Context) error
	Usage(ctx context.Context) (model.Usage, error)
}

type InteractionSets interface {
	LikedSet(ctx context.Context, userID int64, reviewIDs []int64) (map[int64]struct{}, error)
	BookmarkedSet(ctx context.Context, userID int64, reviewIDs []int64) (map[int64]struct{}, error)
}

type FeedRepository interface {
	InteractionSets
	Feed(ctx context.Context, q repository.FeedQuery) ([]repository.FeedRow, error)
}

type ReviewRepository interface {
	InteractionSets
	GetBook(ctx context.Context, id int64) (model.Book, error)
	CreateReview(ctx context.Context, rv model.Review) (model.Review, error)
	GetReview(ctx context.Context, id int64) (model.Review, error)
	GetReviewView(ctx context.Context, id int64) (model.ReviewView, error)
	PublishReview(ctx context.Context, id int64) (model.Review, error)
	SetReviewStatus(ctx context.Context, id int64, status model.ReviewStatus) error
}

type InteractionRepository interface {
	ToggleLike(ctx context.Context, userID, reviewID int64, active bool) (model.ToggleResult, error)
	ToggleBookmark(ctx context.Context, userID, reviewID int64, active bool) (model.ToggleResult, error)
	ToggleFollow(ctx context.Context, followerID, followeeID int64, active bool) (model.ToggleResult, error)
	RecountReview(ctx context.Context, reviewID int64) (likes, bookmarks int, err error)
}

// storageErr classifies a repository error for callers.
func storageErr(err error, what string) error {
	if _, ok := errs.As(err); ok {
		return err
	}
	if errors.Is(err, errs.ErrNotFound) {
		return errs.Wrap(err, errs.NotFound, what+" not found")
	}
	return errs.Wrap(err, errs.UnknownError, "storage failure")
}

func marker(err error) *model.ErrorMarker {
	if e, ok := errs.As(err); ok {
		return &model.ErrorMarker{ErrorType: e.Type, Message: e.Message}
	}
	return &model.ErrorMarker{ErrorType: errs.UnknownError, Message: "unexpected error"}
}

// annotate fills IsLiked/IsBookmarked for viewerID. Anonymous viewers keep nil flags.
func annotate(ctx context.Context, sets InteractionSets, viewerID int64, items []model.ReviewView) error {
	if viewerID == 0 || len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}

	var liked, bookmarked map[int64]struct{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		liked, err = sets.LikedSet(gctx, viewerID, ids)
		return err
	})
	g.Go(func() (err error) {
		bookmarked, err = sets.BookmarkedSet(gctx, viewerID, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return storageErr(err, "interaction")
	}

	for i := range items {
		_, l := liked[items[i].ID]
		_, b := bookmarked[items[i].ID]
		items[i].IsLiked = &l
		items[i].IsBookmarked = &b
	}
	return nil
}
