package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"voxelrtp.ai/internal/config"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/rtp.yaml", "config path (defaults are used when missing)")
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides config)")
		process    = flag.String("process", "", "process id (overrides config)")
		seed       = flag.Uint64("seed", 0, "sampler seed (0 = random)")
		noAudit    = flag.Bool("disable_audit", false, "disable the zstd audit trail")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg := config.Defaults()
	if _, err := os.Stat(*configPath); err == nil {
		loaded, warns, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		for _, w := range warns {
			logger.Printf("config: %s", w)
		}
		cfg = loaded
	} else {
		logger.Printf("config %s not found; using defaults", *configPath)
	}
	if v := strings.TrimSpace(*addr); v != "" {
		cfg.Listen = v
	}
	if v := strings.TrimSpace(*dataDir); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(*process); v != "" {
		cfg.ProcessID = v
	}
	cfg.ProcessID = envString("RTP_PROCESS_ID", cfg.ProcessID)

	ctx, cancel := signalContext()
	defer cancel()

	store, backend, err := openHandoffStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("handoff store (%s): %v", cfg.Handoff.Backend, err)
	}
	logger.Printf("handoff backend: %s", backend)

	a, err := newApp(cfg, appOptions{Store: store, Backend: backend, Audit: !*noAudit, Seed: *seed}, logger)
	if err != nil {
		logger.Fatalf("app: %v", err)
	}
	a.start()
	defer a.Close()

	mux := http.NewServeMux()
	a.routes(mux)

	enableAdminHTTP := envBool("RTP_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("RTP_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		a.adminRoutes(mux)
	} else {
		logger.Printf("admin endpoints disabled (RTP_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("%s listening on %s", cfg.ProcessID, cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
