package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

const reviewReturning = `returning id, user_id, book_id, content, is_recommended, rating, tags, status,
    like_count, bookmark_count, view_count, comment_count, published_at, created_at, updated_at`

func (r *repository) CreateReview(ctx context.Context, rv model.Review) (model.Review, error) {
	if rv.Tags == nil {
		rv.Tags = []string{}
	}
	q := `
insert into reviews (id, user_id, book_id, content, is_recommended, rating, tags, status, published_at)
values (@id, @user_id, @book_id, @content, @is_recommended, @rating, @tags, @status, @published_at)
` + reviewReturning
	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"id":             rv.ID,
		"user_id":        rv.UserID,
		"book_id":        rv.BookID,
		"content":        rv.Content,
		"is_recommended": rv.IsRecommended,
		"rating":         rv.Rating,
		"tags":           rv.Tags,
		"status":         string(rv.Status),
		"published_at":   rv.PublishedAt,
	})
	if err != nil {
		return model.Review{}, errors.Wrap(err, "insert review")
	}
	created, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Review])
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.Review{}, errs.ErrNotFound
		}
		return model.Review{}, errors.Wrap(err, "insert review")
	}
	return created, nil
}

func (r *repository) GetReview(ctx context.Context, id int64) (model.Review, error) {
	q, args, err := qb.Select(
		"id", "user_id", "book_id", "content", "is_recommended", "rating", "tags", "status",
		"like_count", "bookmark_count", "view_count", "comment_count", "published_at", "created_at", "updated_at").
		From(reviewsTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Review{}, err
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return model.Review{}, errors.Wrap(err, "get review")
	}
	rv, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Review])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Review{}, errs.ErrNotFound
		}
		return model.Review{}, errors.Wrap(err, "pgx.CollectOneRow")
	}
	return rv, nil
}

// PublishReview moves a draft to PUBLISHED. Published reviews are returned unchanged.
func (r *repository) PublishReview(ctx context.Context, id int64) (model.Review, error) {
	q := `
update reviews
    set status = 'PUBLISHED', published_at = coalesce(published_at, now()), updated_at = now()
where id = @id and status = 'DRAFT'
` + reviewReturning
	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return model.Review{}, errors.Wrap(err, "publish review")
	}
	rv, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Review])
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetReview(ctx, id)
	}
	if err != nil {
		return model.Review{}, errors.Wrap(err, "publish review")
	}
	return rv, nil
}

func (r *repository) SetReviewStatus(ctx context.Context, id int64, status model.ReviewStatus) error {
	q, args, err := qb.Update(reviewsTableName).
		Set("status", string(status)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return errors.Wrap(err, "update review status")
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// GetReviewView bumps view_count and returns the review with its book and author.
func (r *repository) GetReviewView(ctx context.Context, id int64) (model.ReviewView, error) {
	const q = `
with viewed as (
    update reviews set view_count = view_count + 1
    where id = @id and status <> 'DELETED'
    returning *)
select ` + feedSelect + `, 0::bigint as score
from viewed r
    join books b on b.id = r.book_id
    join users u on u.id = r.user_id`
	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return model.ReviewView{}, errors.Wrap(err, "get review view")
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return model.ReviewView{}, errors.Wrap(err, "get review view")
		}
		return model.ReviewView{}, errs.ErrNotFound
	}
	row, err := scanFeedRow(rows)
	if err != nil {
		return model.ReviewView{}, err
	}
	return row.View, nil
}

func (r *repository) UserExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `select exists(select 1 from users where id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "user exists")
	}
	return exists, nil
}
