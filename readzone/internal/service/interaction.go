package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/events"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

type InteractionService struct {
	repo      InteractionRepository
	publisher events.Publisher
	log       *zap.Logger
}

func NewInteractionService(repo InteractionRepository, publisher events.Publisher, log *zap.Logger) *InteractionService {
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	return &InteractionService{
		repo:      repo,
		publisher: publisher,
		log:       log.Named("interactions"),
	}
}

func invalidAction(action string) error {
	return errs.New(errs.InvalidParams, "unknown action").
		WithDetails(map[string]string{"field": "action", "value": action})
}

// Like is idempotent: repeating an action leaves state and counter unchanged.
func (s *InteractionService) Like(ctx context.Context, userID, reviewID int64, action model.LikeAction) (model.LikeResult, error) {
	var active bool
	switch action {
	case model.ActionLike:
		active = true
	case model.ActionUnlike:
	default:
		return model.LikeResult{}, invalidAction(string(action))
	}

	res, err := s.repo.ToggleLike(ctx, userID, reviewID, active)
	if err != nil {
		return model.LikeResult{}, storageErr(err, "review")
	}
	if res.Changed {
		typ := model.EventUnliked
		if active {
			typ = model.EventLiked
		}
		s.publisher.Publish(ctx, events.NewEvent(typ, userID, reviewID, 0))
	}
	return model.LikeResult{IsLiked: res.Active, LikesCount: res.Count}, nil
}

func (s *InteractionService) Bookmark(ctx context.Context, userID, reviewID int64, action model.BookmarkAction) (model.BookmarkResult, error) {
	var active bool
	switch action {
	case model.ActionBookmark:
		active = true
	case model.ActionUnbookmark:
	default:
		return model.BookmarkResult{}, invalidAction(string(action))
	}

	res, err := s.repo.ToggleBookmark(ctx, userID, reviewID, active)
	if err != nil {
		return model.BookmarkResult{}, storageErr(err, "review")
	}
	if res.Changed {
		typ := model.EventUnbookmarked
		if active {
			typ = model.EventBookmarked
		}
		s.publisher.Publish(ctx, events.NewEvent(typ, userID, reviewID, 0))
	}
	return model.BookmarkResult{IsBookmarked: res.Active, BookmarksCount: res.Count}, nil
}

func (s *InteractionService) Follow(ctx context.Context, followerID, followeeID int64, action model.FollowAction) (model.FollowResult, error) {
	var active bool
	switch action {
	case model.ActionFollow:
		active = true
	case model.ActionUnfollow:
	default:
		return model.FollowResult{}, invalidAction(string(action))
	}
	if followerID == followeeID {
		return model.FollowResult{}, errs.New(errs.InvalidParams, "cannot follow yourself")
	}

	res, err := s.repo.ToggleFollow(ctx, followerID, followeeID, active)
	if err != nil {
		return model.FollowResult{}, storageErr(err, "user")
	}
	if res.Changed {
		typ := model.EventUnfollowed
		if active {
			typ = model.EventFollowed
		}
		s.publisher.Publish(ctx, events.NewEvent(typ, followerID, 0, followeeID))
	}
	return model.FollowResult{IsFollowing: res.Active, FollowersCount: res.Count}, nil
}

// Recount repairs a review's like and bookmark counters from the membership rows.
func (s *InteractionService) Recount(ctx context.Context, reviewID int64) error {
	likes, bookmarks, err := s.repo.RecountReview(ctx, reviewID)
	if err != nil {
		return storageErr(err, "review")
	}
	s.log.Debug("recounted", zap.Int64("review", reviewID), zap.Int("likes", likes), zap.Int("bookmarks", bookmarks))
	return nil
}
