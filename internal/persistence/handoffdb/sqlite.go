package handoffdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"voxelrtp.ai/internal/handoff"
	"voxelrtp.ai/internal/world"
)

// SQLite stores records in a single table. Complete is one conditional
// UPDATE, so concurrent completes of the same record cannot both succeed.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS handoff_requests (
			requester_id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			created_at_ms INTEGER NOT NULL,
			body TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS handoff_requests_created ON handoff_requests(created_at_ms);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Put(ctx context.Context, r handoff.Record) error {
	b, err := encode(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO handoff_requests(requester_id,status,created_at_ms,body) VALUES(?,?,?,?)
		ON CONFLICT(requester_id) DO UPDATE SET status=excluded.status, created_at_ms=excluded.created_at_ms, body=excluded.body`,
		r.RequesterID, string(r.Status), r.CreatedAt.UnixMilli(), string(b))
	return err
}

func (s *SQLite) Get(ctx context.Context, id string) (handoff.Record, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM handoff_requests WHERE requester_id=?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return handoff.Record{}, handoff.ErrNotFound
	}
	if err != nil {
		return handoff.Record{}, err
	}
	return decode([]byte(body))
}

func (s *SQLite) Complete(ctx context.Context, id string, loc world.Coordinate) error {
	r, err := s.Get(ctx, id)
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
	res, err := s.db.ExecContext(ctx, `UPDATE handoff_requests SET status=?, body=? WHERE requester_id=? AND status=?`,
		string(handoff.StatusComplete), string(b), id, string(handoff.StatusPending))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.missingOrDone(ctx, id)
	}
	return nil
}

func (s *SQLite) missingOrDone(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return handoff.ErrNotPending
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM handoff_requests WHERE requester_id=?`, id)
	return err
}

func (s *SQLite) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM handoff_requests WHERE created_at_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLite) List(ctx context.Context) ([]handoff.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM handoff_requests ORDER BY created_at_ms, requester_id`)
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

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }
