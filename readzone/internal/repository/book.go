package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	sq "github.com/Masterminds/squirrel"

	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

var bookColumns = []string{
	"id", "isbn", "title", "authors", "publisher", "thumbnail", "description",
	"published_at", "source", "external_id", "created_at",
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// SearchBooks matches title or any author case-insensitively.
func (r *repository) SearchBooks(ctx context.Context, query string, offset, limit int) ([]model.Book, error) {
	pattern := "%" + escapeLike(query) + "%"
	q, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.Expr("array_to_string(authors, ' ') ilike ?", pattern),
		}).
		OrderBy("title", "id").
		Offset(uint64(offset)).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		r.log.Error("SearchBooks", zap.String("q", q), zap.Error(err))
		return nil, errors.Wrap(err, "search books")
	}
	books, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows")
	}
	return books, nil
}

func (r *repository) GetBook(ctx context.Context, id int64) (model.Book, error) {
	return r.getBook(ctx, sq.Eq{"id": id})
}

func (r *repository) GetBookByISBN(ctx context.Context, isbn string) (model.Book, error) {
	return r.getBook(ctx, sq.Eq{"isbn": isbn})
}

func (r *repository) getBook(ctx context.Context, where sq.Sqlizer) (model.Book, error) {
	q, args, err := qb.Select(bookColumns...).
		From(booksTableName).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return model.Book{}, errors.Wrap(err, "get book")
	}
	book, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, errors.Wrap(err, "pgx.CollectOneRow")
	}
	return book, nil
}

// CreateBook inserts b unless a book with the same ISBN (or, without ISBN,
// the same title and authors) exists; created reports which happened.
func (r *repository) CreateBook(ctx context.Context, b model.Book) (model.Book, bool, error) {
	if b.ISBN == "" {
		existing, err := r.getBook(ctx, sq.And{
			sq.Eq{"isbn": ""},
			sq.Expr("lower(title) = lower(?)", b.Title),
			sq.Expr("authors = ?", b.Authors),
		})
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return model.Book{}, false, err
		}
	}
	if b.Authors == nil {
		b.Authors = []string{}
	}

	const q = `
insert into books (id, isbn, title, authors, publisher, thumbnail, description, published_at, source, external_id)
values (@id, @isbn, @title, @authors, @publisher, @thumbnail, @description, @published_at, @source, @external_id)
returning id, isbn, title, authors, publisher, thumbnail, description, published_at, source, external_id, created_at`
	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"id":           b.ID,
		"isbn":         b.ISBN,
		"title":        b.Title,
		"authors":      b.Authors,
		"publisher":    b.Publisher,
		"thumbnail":    b.Thumbnail,
		"description":  b.Description,
		"published_at": b.PublishedAt,
		"source":       string(b.Source),
		"external_id":  b.ExternalID,
	})
	if err != nil {
		return model.Book{}, false, errors.Wrap(err, "insert book")
	}
	created, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Book])
	if err != nil {
		if isUniqueViolation(err) && b.ISBN != "" {
			existing, getErr := r.GetBookByISBN(ctx, b.ISBN)
			return existing, false, getErr
		}
		return model.Book{}, false, errors.Wrap(err, "insert book")
	}
	return created, true, nil
}
