package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// remoteCmd talks to a running server's loopback admin endpoints.
func remoteCmd(args []string) {
	fs := flag.NewFlagSet("remote", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	identity := fs.String("identity", "", "single record (handoff only)")
	_ = fs.Parse(args)

	q := "handoff"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	base := strings.TrimRight(strings.TrimSpace(*baseURL), "/")

	var req *http.Request
	switch q {
	case "handoff":
		u := base + "/admin/v1/handoff"
		if *identity != "" {
			u += "?identity=" + url.QueryEscape(*identity)
		}
		req, _ = http.NewRequest(http.MethodGet, u, nil)
	case "prune":
		req, _ = http.NewRequest(http.MethodPost, base+"/admin/v1/handoff/prune", nil)
	case "metrics":
		req, _ = http.NewRequest(http.MethodGet, base+"/metrics", nil)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		os.Exit(2)
	}

	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
