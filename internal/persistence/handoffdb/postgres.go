package handoffdb

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"voxelrtp.ai/internal/handoff"
	"voxelrtp.ai/internal/world"
)

// Postgres shares records between processes on different hosts.
type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	_, err = pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS handoff_requests (
		requester_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		body JSONB NOT NULL
	)`)
	if err == nil {
		_, err = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS handoff_requests_created ON handoff_requests(created_at)`)
	}
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Put(ctx context.Context, r handoff.Record) error {
	b, err := encode(r)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `INSERT INTO handoff_requests(requester_id,status,created_at,body) VALUES($1,$2,$3,$4)
		ON CONFLICT (requester_id) DO UPDATE SET status=EXCLUDED.status, created_at=EXCLUDED.created_at, body=EXCLUDED.body`,
		r.RequesterID, string(r.Status), r.CreatedAt, string(b))
	return err
}

func (p *Postgres) Get(ctx context.Context, id string) (handoff.Record, error) {
	var body string
	err := p.pool.QueryRow(ctx, `SELECT body::text FROM handoff_requests WHERE requester_id=$1`, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return handoff.Record{}, handoff.ErrNotFound
	}
	if err != nil {
		return handoff.Record{}, err
	}
	return decode([]byte(body))
}

func (p *Postgres) Complete(ctx context.Context, id string, loc world.Coordinate) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var body string
	err = tx.QueryRow(ctx, `SELECT body::text FROM handoff_requests WHERE requester_id=$1 FOR UPDATE`, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return handoff.ErrNotFound
	}
	if err != nil {
		return err
	}
	r, err := decode([]byte(body))
	if err != nil {
		return err
	}
	if err := complete(&r, loc); err != nil {
		return err
	}
	b, err := encode(r)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE handoff_requests SET status=$2, body=$3 WHERE requester_id=$1`,
		id, string(handoff.StatusComplete), string(b)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM handoff_requests WHERE requester_id=$1`, id)
	return err
}

func (p *Postgres) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM handoff_requests WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) List(ctx context.Context) ([]handoff.Record, error) {
	rows, err := p.pool.Query(ctx, `SELECT body::text FROM handoff_requests ORDER BY created_at, requester_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []handoff.Record
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		r, err := decode([]byte(body))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
