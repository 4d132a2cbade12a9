package host

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgAlarms keeps registrations in the alarms table, so they outlive a
// restart of the service process.
type PgAlarms struct {
	pool  *pgxpool.Pool
	limit int
}

func NewPgAlarms(pool *pgxpool.Pool) *PgAlarms {
	return &PgAlarms{pool: pool, limit: 500}
}

func (p *PgAlarms) Set(ctx context.Context, a Alarm) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO alarms (id, fire_at, repeat_interval_ms, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET fire_at = EXCLUDED.fire_at,
		    repeat_interval_ms = EXCLUDED.repeat_interval_ms,
		    payload = EXCLUDED.payload`,
		a.ID, a.FireAt.UTC(), a.Repeat.Milliseconds(), a.Payload)
	if err != nil {
		return fmt.Errorf("set alarm %d: %w", a.ID, err)
	}
	return nil
}

func (p *PgAlarms) Cancel(ctx context.Context, id int) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM alarms WHERE id = $1`, id); err != nil {
		return fmt.Errorf("cancel alarm %d: %w", id, err)
	}
	return nil
}

func (p *PgAlarms) Lookup(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM alarms WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup alarm %d: %w", id, err)
	}
	return exists, nil
}

func (p *PgAlarms) Due(ctx context.Context, now time.Time) ([]Alarm, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, fire_at, repeat_interval_ms, payload
		FROM alarms
		WHERE fire_at <= $1
		ORDER BY fire_at
		LIMIT $2`, now.UTC(), p.limit)
	if err != nil {
		return nil, fmt.Errorf("find due alarms: %w", err)
	}
	defer rows.Close()

	var due []Alarm
	for rows.Next() {
		var (
			a        Alarm
			repeatMS int64
		)
		if err := rows.Scan(&a.ID, &a.FireAt, &repeatMS, &a.Payload); err != nil {
			return nil, fmt.Errorf("scan alarm: %w", err)
		}
		a.Repeat = time.Duration(repeatMS) * time.Millisecond
		due = append(due, a)
	}
	return due, rows.Err()
}

// Fired matches on fire_at as well as id so a registration replaced between
// Due and Fired is left untouched.
func (p *PgAlarms) Fired(ctx context.Context, a Alarm, now time.Time) error {
	var err error
	if a.Repeat <= 0 {
		_, err = p.pool.Exec(ctx,
			`DELETE FROM alarms WHERE id = $1 AND fire_at = $2`, a.ID, a.FireAt)
	} else {
		_, err = p.pool.Exec(ctx,
			`UPDATE alarms SET fire_at = $1 WHERE id = $2 AND fire_at = $3`,
			nextFire(a.FireAt, a.Repeat, now).UTC(), a.ID, a.FireAt)
	}
	if err != nil {
		return fmt.Errorf("mark alarm %d fired: %w", a.ID, err)
	}
	return nil
}

var (
	_ AlarmService = (*PgAlarms)(nil)
	_ AlarmSource  = (*PgAlarms)(nil)
)
