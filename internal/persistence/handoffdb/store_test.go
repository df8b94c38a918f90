package handoffdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voxelrtp.ai/internal/handoff"
	"voxelrtp.ai/internal/world"
)

func pending(id string, at time.Time) handoff.Record {
	return handoff.Record{
		RequesterID: id,
		Status:      handoff.StatusPending,
		Kind:        handoff.KindSingle,
		WorldName:   "world",
		CreatedAt:   at,
		Origin:      "rtp-1",
	}
}

// exerciseStore runs the Store contract against a fresh backend.
func exerciseStore(t *testing.T, s handoff.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	if _, err := s.Get(ctx, "nobody"); !errors.Is(err, handoff.ErrNotFound) {
		t.Fatalf("get missing: %v", err)
	}
	if err := s.Complete(ctx, "nobody", world.Coordinate{World: "world"}); !errors.Is(err, handoff.ErrNotFound) {
		t.Fatalf("complete missing: %v", err)
	}

	minR := 10
	rec := pending("p1", now)
	rec.MinRadius = &minR
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != handoff.StatusPending || got.Location != nil || got.MinRadius == nil || *got.MinRadius != 10 {
		t.Fatalf("got=%+v", got)
	}

	loc := world.Coordinate{World: "world", X: 10, Y: 70, Z: -5}
	if err := s.Complete(ctx, "p1", loc); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := s.Complete(ctx, "p1", world.Coordinate{World: "world", X: 1}); !errors.Is(err, handoff.ErrNotPending) {
		t.Fatalf("second complete: %v", err)
	}
	got, _ = s.Get(ctx, "p1")
	if got.Status != handoff.StatusComplete || got.Location == nil || *got.Location != loc {
		t.Fatalf("completed=%+v", got)
	}

	old := pending("stale", now.Add(-time.Hour))
	if err := s.Put(ctx, old); err != nil {
		t.Fatalf("put stale: %v", err)
	}
	list, err := s.List(ctx)
	if err != nil || len(list) != 2 || list[0].RequesterID != "stale" {
		t.Fatalf("list=%v err=%v", list, err)
	}
	n, err := s.PruneBefore(ctx, now.Add(-time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("prune n=%d err=%v", n, err)
	}
	if _, err := s.Get(ctx, "stale"); !errors.Is(err, handoff.ErrNotFound) {
		t.Fatalf("stale survived prune: %v", err)
	}

	if err := s.Delete(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "p1"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if _, err := s.Get(ctx, "p1"); !errors.Is(err, handoff.ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "handoff.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handoff.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Put(context.Background(), pending("p1", time.Now().UTC())); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(context.Background(), "p1"); err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("RTP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("RTP_TEST_REDIS_ADDR not set")
	}
	s, err := OpenRedis(context.Background(), addr, 15, time.Hour)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer s.Close()
	for _, id := range []string{"p1", "stale"} {
		_ = s.Delete(context.Background(), id)
	}
	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("RTP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RTP_TEST_POSTGRES_DSN not set")
	}
	s, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer s.Close()
	if _, err := s.pool.Exec(context.Background(), `DELETE FROM handoff_requests`); err != nil {
		t.Fatalf("reset: %v", err)
	}
	exerciseStore(t, s)
}

func TestSchema_RejectsMalformedRecords(t *testing.T) {
	negative := -5
	cases := map[string]handoff.Record{
		"empty id":      {Status: handoff.StatusPending, Kind: handoff.KindSingle, WorldName: "world", CreatedAt: time.Now()},
		"bad status":    {RequesterID: "p1", Status: "DONE", Kind: handoff.KindSingle, WorldName: "world", CreatedAt: time.Now()},
		"complete null": {RequesterID: "p1", Status: handoff.StatusComplete, Kind: handoff.KindSingle, WorldName: "world", CreatedAt: time.Now()},
		"negative min":  {RequesterID: "p1", Status: handoff.StatusPending, Kind: handoff.KindSingle, WorldName: "world", CreatedAt: time.Now(), MinRadius: &negative},
	}
	for name, r := range cases {
		if _, err := encode(r); !errors.Is(err, handoff.ErrInvalidRecord) {
			t.Fatalf("%s: expected schema error, got %v", name, err)
		}
	}
	if err := validate([]byte(`{"requester_id":"p1","status":"PENDING","request_kind":"SINGLE","world_name":"w","location":null,"created_at":"x","extra":1}`)); err == nil {
		t.Fatalf("additional property accepted")
	}
}

func TestOpen_BackendSelection(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{Backend: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("got %T", s)
	}
	s, err = Open(ctx, Options{Backend: "SQLite", SQLitePath: filepath.Join(t.TempDir(), "h.sqlite")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	_ = s.Close()
	if _, err := Open(ctx, Options{Backend: "redis"}); err == nil {
		t.Fatalf("redis without addr accepted")
	}
	if _, err := Open(ctx, Options{Backend: "etcd"}); err == nil {
		t.Fatalf("unknown backend accepted")
	}
}
