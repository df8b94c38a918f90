package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"voxelrtp.ai/internal/config"
	"voxelrtp.ai/internal/handoff"
	"voxelrtp.ai/internal/persistence/handoffdb"
)

// openHandoffStore picks the shared store. RTP_HANDOFF_BACKEND,
// RTP_REDIS_ADDR and RTP_POSTGRES_DSN override the config file.
func openHandoffStore(ctx context.Context, cfg config.Config) (handoff.Store, string, error) {
	h := cfg.Handoff
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("RTP_HANDOFF_BACKEND")))
	if backend == "" {
		backend = h.Backend
	}
	sqlitePath := h.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.DataDir, "handoff", "handoff.sqlite")
	}
	store, err := handoffdb.Open(ctx, handoffdb.Options{
		Backend:     backend,
		SQLitePath:  sqlitePath,
		PostgresDSN: envString("RTP_POSTGRES_DSN", h.PostgresDSN),
		RedisAddr:   envString("RTP_REDIS_ADDR", h.RedisAddr),
		RedisDB:     envInt("RTP_REDIS_DB", h.RedisDB),
		TTL:         time.Duration(h.TTLSeconds) * time.Second,
	})
	return store, backend, err
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
