package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxelrtp.ai/internal/config"
	"voxelrtp.ai/internal/handoff"
	"voxelrtp.ai/internal/persistence/handoffdb"
)

// handoffCmd reads the shared handoff store directly: list, show <identity>,
// prune, or delete <identity>.
func handoffCmd(args []string) {
	fs := flag.NewFlagSet("handoff", flag.ExitOnError)
	configPath := fs.String("config", "./configs/rtp.yaml", "config path (optional)")
	backend := fs.String("backend", "", "store backend (overrides config)")
	sqlitePath := fs.String("sqlite", "", "sqlite path (overrides config)")
	pgDSN := fs.String("postgres", "", "postgres dsn (overrides config)")
	redisAddr := fs.String("redis", "", "redis addr (overrides config)")
	olderThan := fs.Duration("older_than", 0, "prune cutoff age (defaults to handoff.ttl_seconds)")
	_ = fs.Parse(args)

	q := "list"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	cfg := config.Defaults()
	if _, err := os.Stat(*configPath); err == nil {
		loaded, _, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	o := handoffdb.Options{
		Backend:     pick(*backend, cfg.Handoff.Backend),
		SQLitePath:  pick(*sqlitePath, cfg.Handoff.SQLitePath),
		PostgresDSN: pick(*pgDSN, cfg.Handoff.PostgresDSN),
		RedisAddr:   pick(*redisAddr, cfg.Handoff.RedisAddr),
		RedisDB:     cfg.Handoff.RedisDB,
		TTL:         time.Duration(cfg.Handoff.TTLSeconds) * time.Second,
	}
	if o.SQLitePath == "" {
		o.SQLitePath = filepath.Join(cfg.DataDir, "handoff", "handoff.sqlite")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	store, err := handoffdb.Open(ctx, o)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer store.Close()

	enc := json.NewEncoder(os.Stdout)
	switch q {
	case "list":
		recs, err := store.List(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "list:", err)
			os.Exit(1)
		}
		for _, r := range recs {
			_ = enc.Encode(r)
		}
	case "show", "delete":
		if fs.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "usage: admin handoff %s <identity>\n", q)
			os.Exit(2)
		}
		id := fs.Arg(1)
		rec, err := store.Get(ctx, id)
		if errors.Is(err, handoff.ErrNotFound) {
			fmt.Fprintln(os.Stderr, "not found:", id)
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "get:", err)
			os.Exit(1)
		}
		if q == "delete" {
			if err := store.Delete(ctx, id); err != nil {
				fmt.Fprintln(os.Stderr, "delete:", err)
				os.Exit(1)
			}
		}
		_ = enc.Encode(rec)
	case "prune":
		age := *olderThan
		if age <= 0 {
			age = o.TTL
		}
		n, err := store.PruneBefore(ctx, time.Now().Add(-age))
		if err != nil {
			fmt.Fprintln(os.Stderr, "prune:", err)
			os.Exit(1)
		}
		fmt.Printf("pruned %d records older than %s\n", n, age)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		os.Exit(2)
	}
}

func pick(flagVal, cfgVal string) string {
	if v := strings.TrimSpace(flagVal); v != "" {
		return v
	}
	return cfgVal
}
