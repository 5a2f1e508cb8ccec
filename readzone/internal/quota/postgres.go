package quota

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const (
	incrementQuery = `
insert into api_usage (usage_date, used, daily_limit)
values (@day::date, 1, @limit)
on conflict (usage_date) do update
    set used        = api_usage.used + 1,
        daily_limit = excluded.daily_limit,
        updated_at  = now()
where api_usage.used < excluded.daily_limit
returning used`

	// The no-op update locks the existing row so the statement returns it even
	// when a concurrent insert for the same day won the race.
	usedQuery = `
insert into api_usage (usage_date, used, daily_limit)
values (@day::date, 0, @limit)
on conflict (usage_date) do update
    set used = api_usage.used
returning used`
)

// rowQuerier is satisfied by *pgxpool.Pool and pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db rowQuerier
}

func NewPostgresStore(db rowQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Increment(ctx context.Context, day string, limit int) (int, bool, error) {
	var used int
	err := s.db.QueryRow(ctx, incrementQuery, pgx.NamedArgs{"day": day, "limit": limit}).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return limit, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "increment api_usage")
	}
	return used, true, nil
}

func (s *PostgresStore) Used(ctx context.Context, day string, limit int) (int, error) {
	var used int
	if err := s.db.QueryRow(ctx, usedQuery, pgx.NamedArgs{"day": day, "limit": limit}).Scan(&used); err != nil {
		return 0, errors.Wrap(err, "select api_usage")
	}
	return used, nil
}
