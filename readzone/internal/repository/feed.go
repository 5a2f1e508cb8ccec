package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	sq "github.com/Masterminds/squirrel"

	"github.com/zerodice0/readzone/readzone/internal/model"
)

const feedSelect = `r.id, r.user_id, r.book_id, r.content, r.is_recommended, r.rating, r.tags, r.status,
    r.like_count, r.bookmark_count, r.view_count, r.comment_count, r.published_at, r.created_at, r.updated_at,
    b.title, b.authors, b.thumbnail,
    u.username, u.nickname, u.avatar_url`

type FeedQuery struct {
	Tab      model.FeedTab
	After    *model.FeedKey
	Limit    int
	ViewerID int64
}

type FeedRow struct {
	View model.ReviewView
	Key  model.FeedKey
}

func (r *repository) scoreExpr() string {
	return fmt.Sprintf("(r.like_count * %d + r.comment_count * %d + r.bookmark_count * %d)::bigint",
		r.weights.Like, r.weights.Comment, r.weights.Bookmark)
}

// Feed returns published reviews after the keyset position q.After, in tab order.
func (r *repository) Feed(ctx context.Context, q FeedQuery) ([]FeedRow, error) {
	score := "0::bigint"
	if q.Tab == model.TabRecommended {
		score = r.scoreExpr()
	}

	b := qb.Select(feedSelect, score+" as score").
		From(reviewsTableName + " r").
		Join(booksTableName + " b on b.id = r.book_id").
		Join(usersTableName + " u on u.id = r.user_id").
		Where(sq.Eq{"r.status": string(model.StatusPublished)}).
		Limit(uint64(q.Limit))

	if q.Tab == model.TabFollowing {
		b = b.Join(followsTableName+" f on f.followee_id = r.user_id").
			Where(sq.Eq{"f.follower_id": q.ViewerID})
	}

	if q.Tab == model.TabRecommended {
		if q.After != nil {
			b = b.Where(fmt.Sprintf("(%s, r.published_at, r.id) < (?, ?, ?)", score),
				q.After.Score, q.After.PublishedAt, q.After.ID)
		}
		b = b.OrderBy("score desc", "r.published_at desc", "r.id desc")
	} else {
		if q.After != nil {
			b = b.Where("(r.published_at, r.id) < (?, ?)", q.After.PublishedAt, q.After.ID)
		}
		b = b.OrderBy("r.published_at desc", "r.id desc")
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Feed", zap.String("q", query), zap.Any("args", args), zap.Error(err))
		return nil, errors.Wrap(err, "feed")
	}
	defer rows.Close()

	res := make([]FeedRow, 0, q.Limit)
	for rows.Next() {
		row, err := scanFeedRow(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "feed rows")
	}
	return res, nil
}

func scanFeedRow(rows pgx.Rows) (FeedRow, error) {
	var (
		v           model.ReviewView
		status      string
		publishedAt *time.Time
		score       int64
	)
	err := rows.Scan(
		&v.ID, &v.UserID, &v.BookID, &v.Content, &v.IsRecommended, &v.Rating, &v.Tags, &status,
		&v.LikeCount, &v.BookmarkCount, &v.ViewCount, &v.CommentCount, &publishedAt, &v.CreatedAt, &v.UpdatedAt,
		&v.Book.Title, &v.Book.Authors, &v.Book.Thumbnail,
		&v.Author.Username, &v.Author.Nickname, &v.Author.AvatarURL,
		&score,
	)
	if err != nil {
		return FeedRow{}, errors.Wrap(err, "scan feed row")
	}
	v.Status = model.ReviewStatus(status)
	v.PublishedAt = publishedAt
	v.Book.ID = v.BookID
	v.Author.ID = v.UserID

	key := model.FeedKey{Score: score, ID: v.ID}
	if publishedAt != nil {
		key.PublishedAt = *publishedAt
	}
	return FeedRow{View: v, Key: key}, nil
}

// LikedSet returns which of reviewIDs userID has liked.
func (r *repository) LikedSet(ctx context.Context, userID int64, reviewIDs []int64) (map[int64]struct{}, error) {
	return r.memberSet(ctx, likesTableName, userID, reviewIDs)
}

func (r *repository) BookmarkedSet(ctx context.Context, userID int64, reviewIDs []int64) (map[int64]struct{}, error) {
	return r.memberSet(ctx, bookmarksTableName, userID, reviewIDs)
}

func (r *repository) memberSet(ctx context.Context, table string, userID int64, reviewIDs []int64) (map[int64]struct{}, error) {
	set := make(map[int64]struct{}, len(reviewIDs))
	if len(reviewIDs) == 0 {
		return set, nil
	}
	q, args, err := qb.Select("review_id").
		From(table).
		Where(sq.Eq{"user_id": userID}).
		Where("review_id = any(?)", reviewIDs).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "select %s", table)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
