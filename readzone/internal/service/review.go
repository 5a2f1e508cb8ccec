package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zerodice0/readzone/pkg/snowflake"
	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

const (
	maxContentRunes = 10000
	maxTags         = 10
)

type ReviewService struct {
	repo ReviewRepository
	now  func() time.Time
	log  *zap.Logger
}

func NewReviewService(repo ReviewRepository, log *zap.Logger) *ReviewService {
	return &ReviewService{
		repo: repo,
		now:  time.Now,
		log:  log.Named("reviews"),
	}
}

func (s *ReviewService) CreateReview(ctx context.Context, userID int64, req model.CreateReviewRequest) (model.Review, error) {
	content := strings.TrimSpace(req.Content)
	if n := len([]rune(content)); n == 0 || n > maxContentRunes {
		return model.Review{}, errs.New(errs.InvalidParams, "content must be 1..10000 characters").
			WithDetails(map[string]string{"field": "content"})
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return model.Review{}, errs.New(errs.InvalidParams, "rating must be between 1 and 5").
			WithDetails(map[string]any{"field": "rating", "value": *req.Rating})
	}
	tags := normalizeTags(req.Tags)
	if len(tags) > maxTags {
		return model.Review{}, errs.New(errs.InvalidParams, "at most 10 tags").
			WithDetails(map[string]string{"field": "tags"})
	}
	if _, err := s.repo.GetBook(ctx, req.BookID); err != nil {
		return model.Review{}, storageErr(err, "book")
	}

	rv := model.Review{
		ID:            snowflake.GenID(),
		UserID:        userID,
		BookID:        req.BookID,
		Content:       content,
		IsRecommended: req.IsRecommended,
		Rating:        req.Rating,
		Tags:          tags,
		Status:        model.StatusDraft,
	}
	if !req.Draft {
		now := s.now().UTC()
		rv.Status = model.StatusPublished
		rv.PublishedAt = &now
	}
	created, err := s.repo.CreateReview(ctx, rv)
	if err != nil {
		return model.Review{}, storageErr(err, "book")
	}
	s.log.Info("review created", zap.Int64("id", created.ID), zap.String("status", string(created.Status)))
	return created, nil
}

func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// owned loads a review the caller may mutate. Deleted reviews do not exist for anyone.
func (s *ReviewService) owned(ctx context.Context, userID, reviewID int64) (model.Review, error) {
	rv, err := s.repo.GetReview(ctx, reviewID)
	if err != nil {
		return model.Review{}, storageErr(err, "review")
	}
	if rv.Status == model.StatusDeleted {
		return model.Review{}, errs.New(errs.NotFound, "review not found")
	}
	if rv.UserID != userID {
		return model.Review{}, errs.New(errs.Forbidden, "only the author can change this review")
	}
	return rv, nil
}

func (s *ReviewService) PublishReview(ctx context.Context, userID, reviewID int64) (model.Review, error) {
	rv, err := s.owned(ctx, userID, reviewID)
	if err != nil {
		return model.Review{}, err
	}
	switch rv.Status {
	case model.StatusPublished:
		return rv, nil
	case model.StatusArchived:
		return model.Review{}, errs.New(errs.InvalidParams, "archived reviews cannot be published")
	}
	published, err := s.repo.PublishReview(ctx, reviewID)
	if err != nil {
		return model.Review{}, storageErr(err, "review")
	}
	return published, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, userID, reviewID int64) error {
	if _, err := s.owned(ctx, userID, reviewID); err != nil {
		return err
	}
	if err := s.repo.SetReviewStatus(ctx, reviewID, model.StatusDeleted); err != nil {
		return storageErr(err, "review")
	}
	s.log.Info("review deleted", zap.Int64("id", reviewID), zap.Int64("user", userID))
	return nil
}

// GetReview shows published reviews to everyone and drafts only to their author.
func (s *ReviewService) GetReview(ctx context.Context, reviewID, viewerID int64) (model.ReviewView, error) {
	rv, err := s.repo.GetReview(ctx, reviewID)
	if err != nil {
		return model.ReviewView{}, storageErr(err, "review")
	}
	visible := rv.Status == model.StatusPublished ||
		(rv.Status != model.StatusDeleted && viewerID != 0 && rv.UserID == viewerID)
	if !visible {
		return model.ReviewView{}, errs.New(errs.NotFound, "review not found")
	}

	view, err := s.repo.GetReviewView(ctx, reviewID)
	if err != nil {
		return model.ReviewView{}, storageErr(err, "review")
	}
	items := []model.ReviewView{view}
	if err := annotate(ctx, s.repo, viewerID, items); err != nil {
		return model.ReviewView{}, err
	}
	return items[0], nil
}
