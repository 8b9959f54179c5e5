package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/yakoovad/gitlab-mr-batch/internal/db"
)

const kvTable = "kv_store"

type pgxKeyValueRepository struct {
	pool *pgxpool.Pool
}

func NewPgxKeyValueRepository(pool *pgxpool.Pool) KeyValueRepository {
	return &pgxKeyValueRepository{pool: pool}
}

func (p *pgxKeyValueRepository) Get(ctx context.Context, key string) ([]byte, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sql, args, err := selectValueQuery(ctx, key)
	if err != nil {
		return nil, err
	}

	return scanValue(e.QueryRow(ctx, sql, args...))
}

func (p *pgxKeyValueRepository) Set(ctx context.Context, key string, value []byte) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sql, args, err := upsertQuery(ctx, key, value, time.Now().UTC())
	if err != nil {
		return err
	}

	if _, err = e.Exec(ctx, sql, args...); err != nil {
		return errors.Wrapf(err, "failed to store key %q", key)
	}
	return nil
}

func (p *pgxKeyValueRepository) Delete(ctx context.Context, key string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	sql, args, err := deleteQuery(ctx, key)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)
	return err
}

func selectValueQuery(ctx context.Context, key string) (string, []any, error) {
	return psql.Select(
		sm.Columns("value"),
		sm.From(kvTable),
		sm.Where(psql.Quote("key").EQ(psql.Arg(key))),
	).Build(ctx)
}

// upsertQuery writes value under key, replacing the value and its timestamp
// when the key already exists.
func upsertQuery(ctx context.Context, key string, value []byte, now time.Time) (string, []any, error) {
	return psql.Insert(
		im.Into(kvTable, "key", "value", "updated_at"),
		im.Values(psql.Arg(key), psql.Arg(value), psql.Arg(now)),
		im.OnConflict(psql.Quote("key")).DoUpdate(
			im.SetCol("value").ToArg(value),
			im.SetCol("updated_at").ToArg(now),
		),
	).Build(ctx)
}

func deleteQuery(ctx context.Context, key string) (string, []any, error) {
	return psql.Delete(
		dm.From(kvTable),
		dm.Where(psql.Quote("key").EQ(psql.Arg(key))),
	).Build(ctx)
}

func scanValue(row pgx.Row) ([]byte, error) {
	var value []byte
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}
