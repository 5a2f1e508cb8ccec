package handler

import (
	"context"

	"github.com/zerodice0/readzone/readzone/internal/model"
	"github.com/zerodice0/readzone/readzone/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type BookService interface {
	Search(ctx context.Context, q model.SearchQuery) (model.SearchResult, error)
	SearchByISBN(ctx context.Context, raw string) (model.ISBNResult, error)
	BatchSearch(ctx context.Context, req model.BatchRequest) (model.BatchResult, error)
	CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, bool, error)
	GetBook(ctx context.Context, id int64) (model.Book, error)
	Usage(ctx context.Context) (model.Usage, error)
	CacheStats(ctx context.Context) (model.CacheStats, error)
	ClearCache(ctx context.Context, pattern string) (model.ClearCacheResult, error)
}

type FeedService interface {
	Feed(ctx context.Context, req model.FeedRequest, viewerID int64) (model.FeedPage, error)
}

type ReviewService interface {
	CreateReview(ctx context.Context, userID int64, req model.CreateReviewRequest) (model.Review, error)
	PublishReview(ctx context.Context, userID, reviewID int64) (model.Review, error)
	DeleteReview(ctx context.Context, userID, reviewID int64) error
	GetReview(ctx context.Context, reviewID, viewerID int64) (model.ReviewView, error)
}

type InteractionService interface {
	Like(ctx context.Context, userID, reviewID int64, action model.LikeAction) (model.LikeResult, error)
	Bookmark(ctx context.Context, userID, reviewID int64, action model.BookmarkAction) (model.BookmarkResult, error)
	Follow(ctx context.Context, followerID, followeeID int64, action model.FollowAction) (model.FollowResult, error)
	Recount(ctx context.Context, reviewID int64) error
}

var (
	_ BookService        = (*service.BookService)(nil)
	_ FeedService        = (*service.FeedService)(nil)
	_ ReviewService      = (*service.ReviewService)(nil)
	_ InteractionService = (*service.InteractionService)(nil)
)
