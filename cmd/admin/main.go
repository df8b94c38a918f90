package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	persistlog "voxelrtp.ai/internal/persistence/log"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "handoff":
			handoffCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "remote":
			remoteCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin handoff|audit|remote [flags]")
	os.Exit(2)
}

// auditCmd prints audit trail lines that match the filters.
func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	kind := fs.String("kind", "teleports", "audit stream: teleports|search")
	worldName := fs.String("world", "", "world filter (optional)")
	identity := fs.String("identity", "", "identity filter (optional)")
	since := fs.Duration("since", 0, "only entries newer than this (optional)")
	_ = fs.Parse(args)

	switch *kind {
	case "teleports", "search":
	default:
		fmt.Fprintln(os.Stderr, "bad -kind:", *kind)
		os.Exit(2)
	}
	var cutoff time.Time
	if *since > 0 {
		cutoff = time.Now().Add(-*since)
	}

	n := 0
	err := persistlog.ReadLines(filepath.Join(*dataDir, "audit"), *kind, func(line []byte) error {
		var e struct {
			Time      time.Time `json:"time"`
			World     string    `json:"world"`
			Identity  string    `json:"identity"`
			Requester string    `json:"requester"`
		}
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		who := e.Identity
		if who == "" {
			who = e.Requester
		}
		if *worldName != "" && e.World != *worldName {
			return nil
		}
		if *identity != "" && who != *identity {
			return nil
		}
		if !cutoff.IsZero() && e.Time.Before(cutoff) {
			return nil
		}
		n++
		fmt.Println(strings.TrimSpace(string(line)))
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d entries\n", n)
}
