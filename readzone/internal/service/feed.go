package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/zerodice0/readzone/readzone/internal/cursor"
	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/model"
	"github.com/zerodice0/readzone/readzone/internal/repository"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 50
)

type FeedService struct {
	repo  FeedRepository
	codec *cursor.Codec
	log   *zap.Logger
}

func NewFeedService(repo FeedRepository, codec *cursor.Codec, log *zap.Logger) *FeedService {
	return &FeedService{
		repo:  repo,
		codec: codec,
		log:   log.Named("feed"),
	}
}

// Feed returns one page of published reviews. viewerID is 0 for anonymous callers.
func (s *FeedService) Feed(ctx context.Context, req model.FeedRequest, viewerID int64) (model.FeedPage, error) {
	tab := req.Tab
	if tab == "" {
		tab = model.TabRecommended
	}
	switch tab {
	case model.TabRecommended, model.TabLatest, model.TabFollowing:
	default:
		return model.FeedPage{}, errs.New(errs.InvalidParams, "unknown feed tab").
			WithDetails(map[string]string{"field": "tab", "value": string(req.Tab)})
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultFeedLimit
	}
	if limit < 1 || limit > maxFeedLimit {
		return model.FeedPage{}, errs.New(errs.InvalidParams, "limit must be between 1 and 50").
			WithDetails(map[string]any{"field": "limit", "value": req.Limit})
	}
	if tab == model.TabFollowing && viewerID == 0 {
		return model.FeedPage{}, errs.New(errs.Unauthorized, "login required for the following feed")
	}

	var after *model.FeedKey
	if req.Cursor != "" {
		key, err := s.codec.Decode(tab, req.Cursor)
		if err != nil {
			return model.FeedPage{}, err
		}
		after = &key
	}

	rows, err := s.repo.Feed(ctx, repository.FeedQuery{
		Tab:      tab,
		After:    after,
		Limit:    limit + 1,
		ViewerID: viewerID,
	})
	if err != nil {
		return model.FeedPage{}, storageErr(err, "feed")
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	items := make([]model.ReviewView, len(rows))
	for i := range rows {
		items[i] = rows[i].View
	}
	if err := annotate(ctx, s.repo, viewerID, items); err != nil {
		return model.FeedPage{}, err
	}

	page := model.FeedPage{Items: items, HasMore: hasMore}
	if hasMore {
		next, err := s.codec.Encode(tab, rows[len(rows)-1].Key)
		if err != nil {
			return model.FeedPage{}, err
		}
		page.NextCursor = &next
	}
	return page, nil
}
