package repository

import (
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	sq "github.com/Masterminds/squirrel"
)

const (
	booksTableName     = `books`
	reviewsTableName   = `reviews`
	usersTableName     = `users`
	likesTableName     = `likes`
	bookmarksTableName = `bookmarks`
	followsTableName   = `follows`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// FeedWeights are the integer multipliers of the recommended score.
type FeedWeights struct {
	Like     int
	Comment  int
	Bookmark int
}

type repository struct {
	db      *pgxpool.Pool
	weights FeedWeights
	log     *zap.Logger
}

func NewRepository(db *pgxpool.Pool, weights FeedWeights, log *zap.Logger) (*repository, error) {
	if weights.Like < 0 || weights.Comment < 0 || weights.Bookmark < 0 {
		return nil, errors.Errorf("negative feed weights %+v", weights)
	}
	return &repository{
		db:      db,
		weights: weights,
		log:     log.Named("repo"),
	}, nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == pgerrcode.ForeignKeyViolation
}
