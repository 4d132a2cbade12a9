package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps sets and bundles in the kv_sets and kv_bundles tables
// created by the migrations in internal/db.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Members(ctx context.Context, set string) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT member FROM kv_sets WHERE set_name = $1 ORDER BY member`, set)
	if err != nil {
		return nil, fmt.Errorf("query set %q: %w", set, err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan set member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ReplaceSet deletes and re-inserts the whole set inside one transaction.
func (p *Postgres) ReplaceSet(ctx context.Context, set string, members []string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM kv_sets WHERE set_name = $1`, set); err != nil {
		return fmt.Errorf("clear set %q: %w", set, err)
	}

	if len(members) > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO kv_sets (set_name, member)
			SELECT $1, m FROM unnest($2::text[]) AS m
			ON CONFLICT DO NOTHING`, set, dedupe(members))
		if err != nil {
			return fmt.Errorf("write set %q: %w", set, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit set %q: %w", set, err)
	}
	return nil
}

func (p *Postgres) Bundle(ctx context.Context, key string) (Bundle, bool, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT field, value FROM kv_bundles WHERE bundle_key = $1`, key)
	if err != nil {
		return nil, false, fmt.Errorf("query bundle %q: %w", key, err)
	}
	defer rows.Close()

	b := Bundle{}
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, false, fmt.Errorf("scan bundle field: %w", err)
		}
		b[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(b) == 0 {
		return nil, false, nil
	}
	return b, true, nil
}

func (p *Postgres) PutBundle(ctx context.Context, key string, b Bundle) error {
	fields := make([]string, 0, len(b))
	values := make([]string, 0, len(b))
	for k, v := range b {
		fields = append(fields, k)
		values = append(values, v)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM kv_bundles WHERE bundle_key = $1`, key); err != nil {
		return fmt.Errorf("clear bundle %q: %w", key, err)
	}
	if len(fields) > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO kv_bundles (bundle_key, field, value)
			SELECT $1, f, v FROM unnest($2::text[], $3::text[]) AS t(f, v)`,
			key, fields, values)
		if err != nil {
			return fmt.Errorf("write bundle %q: %w", key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bundle %q: %w", key, err)
	}
	return nil
}

func (p *Postgres) DeleteBundle(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM kv_bundles WHERE bundle_key = $1`, key); err != nil {
		return fmt.Errorf("delete bundle %q: %w", key, err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

var _ Store = (*Postgres)(nil)
