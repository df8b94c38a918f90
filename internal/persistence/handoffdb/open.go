// Package handoffdb implements handoff.Store over in-memory, SQLite,
// PostgreSQL and Redis storage.
package handoffdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voxelrtp.ai/internal/handoff"
)

type Options struct {
	Backend     string
	SQLitePath  string
	PostgresDSN string
	RedisAddr   string
	RedisDB     int
	TTL         time.Duration
}

func Open(ctx context.Context, o Options) (handoff.Store, error) {
	switch strings.ToLower(strings.TrimSpace(o.Backend)) {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(o.SQLitePath)
	case "postgres", "postgresql":
		if strings.TrimSpace(o.PostgresDSN) == "" {
			return nil, fmt.Errorf("handoff backend postgres but postgres_dsn is empty")
		}
		return OpenPostgres(ctx, o.PostgresDSN)
	case "redis":
		if strings.TrimSpace(o.RedisAddr) == "" {
			return nil, fmt.Errorf("handoff backend redis but redis_addr is empty")
		}
		return OpenRedis(ctx, o.RedisAddr, o.RedisDB, o.TTL)
	default:
		return nil, fmt.Errorf("unsupported handoff backend: %s", o.Backend)
	}
}
