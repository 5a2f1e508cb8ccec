package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

func (r *repository) ToggleLike(ctx context.Context, userID, reviewID int64, active bool) (model.ToggleResult, error) {
	return r.toggle(ctx, likesTableName, "like_count", userID, reviewID, active)
}

func (r *repository) ToggleBookmark(ctx context.Context, userID, reviewID int64, active bool) (model.ToggleResult, error) {
	return r.toggle(ctx, bookmarksTableName, "bookmark_count", userID, reviewID, active)
}

// toggle sets the (user, review) membership in table and keeps the review counter
// in step inside one transaction. The counter only moves when a row was written.
func (r *repository) toggle(ctx context.Context, table, counter string, userID, reviewID int64, active bool) (model.ToggleResult, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.ToggleResult{}, errors.Wrap(err, "begin tx")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			r.log.Warn("rollback", zap.Error(err))
		}
	}()

	var status string
	err = tx.QueryRow(ctx, `select status from reviews where id = $1`, reviewID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && status != string(model.StatusPublished)) {
		return model.ToggleResult{}, errs.ErrNotFound
	}
	if err != nil {
		return model.ToggleResult{}, errors.Wrap(err, "select review")
	}

	var tag pgconn.CommandTag
	if active {
		tag, err = tx.Exec(ctx,
			fmt.Sprintf(`insert into %s (user_id, review_id) values ($1, $2) on conflict do nothing`, table),
			userID, reviewID)
	} else {
		tag, err = tx.Exec(ctx,
			fmt.Sprintf(`delete from %s where user_id = $1 and review_id = $2`, table),
			userID, reviewID)
	}
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ToggleResult{}, errs.New(errs.NotFound, "user not found")
		}
		return model.ToggleResult{}, errors.Wrapf(err, "mutate %s", table)
	}

	res := model.ToggleResult{Active: active, Changed: tag.RowsAffected() > 0}
	if res.Changed {
		delta := 1
		if !active {
			delta = -1
		}
		err = tx.QueryRow(ctx,
			fmt.Sprintf(`update reviews set %[1]s = greatest(%[1]s + $2, 0) where id = $1 returning %[1]s`, counter),
			reviewID, delta).Scan(&res.Count)
	} else {
		err = tx.QueryRow(ctx,
			fmt.Sprintf(`select %s from reviews where id = $1`, counter),
			reviewID).Scan(&res.Count)
	}
	if err != nil {
		return model.ToggleResult{}, errors.Wrapf(err, "update %s", counter)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.ToggleResult{}, errors.Wrap(err, "commit")
	}
	return res, nil
}

// RecountReview rewrites the denormalized counters from the membership rows.
func (r *repository) RecountReview(ctx context.Context, reviewID int64) (likes, bookmarks int, err error) {
	const q = `
update reviews
    set like_count     = (select count(*) from likes where review_id = @id),
        bookmark_count = (select count(*) from bookmarks where review_id = @id)
where id = @id
returning like_count, bookmark_count`
	err = r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": reviewID}).Scan(&likes, &bookmarks)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, errs.ErrNotFound
	}
	if err != nil {
		return 0, 0, errors.Wrap(err, "recount review")
	}
	return likes, bookmarks, nil
}

func (r *repository) ToggleFollow(ctx context.Context, followerID, followeeID int64, active bool) (model.ToggleResult, error) {
	exists, err := r.UserExists(ctx, followeeID)
	if err != nil {
		return model.ToggleResult{}, err
	}
	if !exists {
		return model.ToggleResult{}, errs.ErrNotFound
	}

	var tag pgconn.CommandTag
	if active {
		tag, err = r.db.Exec(ctx,
			`insert into follows (follower_id, followee_id) values ($1, $2) on conflict do nothing`,
			followerID, followeeID)
	} else {
		tag, err = r.db.Exec(ctx,
			`delete from follows where follower_id = $1 and followee_id = $2`,
			followerID, followeeID)
	}
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ToggleResult{}, errs.New(errs.NotFound, "user not found")
		}
		return model.ToggleResult{}, errors.Wrap(err, "mutate follows")
	}

	res := model.ToggleResult{Active: active, Changed: tag.RowsAffected() > 0}
	err = r.db.QueryRow(ctx, `select count(*) from follows where followee_id = $1`, followeeID).Scan(&res.Count)
	if err != nil {
		return model.ToggleResult{}, errors.Wrap(err, "count followers")
	}
	return res, nil
}
