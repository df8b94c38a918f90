package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"voxelrtp.ai/internal/config"
	"voxelrtp.ai/internal/handoff"
	"voxelrtp.ai/internal/persistence/auditmirror"
	persistlog "voxelrtp.ai/internal/persistence/log"
	"voxelrtp.ai/internal/protocol"
	"voxelrtp.ai/internal/regions"
	"voxelrtp.ai/internal/safety"
	"voxelrtp.ai/internal/scheduler"
	"voxelrtp.ai/internal/search"
	"voxelrtp.ai/internal/transport/observer"
	"voxelrtp.ai/internal/world"
	"voxelrtp.ai/internal/world/voxel"
)

type app struct {
	cfg config.Config
	log *log.Logger

	host     *voxel.Host
	worlds   *world.Registry
	regions  *regions.Registry
	engine   *search.Engine
	cache    *search.Cache
	sched    *scheduler.Scheduler
	coord    *handoff.Coordinator
	store    handoff.Store
	backend  string
	mover    *peerMover
	observer *observer.Server

	searchLog   *persistlog.SearchLogger
	teleportLog *persistlog.TeleportLogger
	mirror      *auditmirror.Mirror

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type appOptions struct {
	Store   handoff.Store
	Backend string
	// Audit turns on the zstd audit trail.
	Audit bool
	Seed  uint64
}

func newApp(cfg config.Config, opts appOptions, logger *log.Logger) (*app, error) {
	if logger == nil {
		logger = log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("no handoff store")
	}
	compiled, warns := cfg.Compile()
	for _, w := range warns {
		logger.Printf("config: %s", w)
	}

	a := &app{cfg: cfg, log: logger, store: opts.Store, backend: opts.Backend}

	var hosted []*voxel.World
	a.worlds = world.NewRegistry()
	for i, h := range compiled.Handles {
		a.worlds.Put(h)
		hosted = append(hosted, voxel.New(compiled.Voxel[i]))
	}
	a.host = voxel.NewHost(hosted...)

	a.regions = regions.NewRegistry(prefixed("[regions] "))
	a.regions.Bind("claims", regions.ProbeClaims(compiled.Claims))
	validator := safety.NewValidator(compiled.Rules, a.regions)

	a.observer = observer.NewServer(cfg.ProcessID, prefixed("[observer] "))

	if opts.Audit {
		m, err := buildAuditMirror(cfg.DataDir, cfg.ProcessID, prefixed("[mirror] "))
		if err != nil {
			return nil, err
		}
		a.mirror = m
		wo := auditWriterOptions(m)
		a.searchLog = persistlog.NewSearchLoggerWithOptions(cfg.DataDir, wo)
		a.searchLog.Err = func(err error) { logger.Printf("search audit: %v", err) }
		a.teleportLog = persistlog.NewTeleportLoggerWithOptions(cfg.DataDir, wo)
	}
	a.engine = search.NewEngine(a.worlds, a.host, validator, search.Options{
		Attempts:  compiled.Attempts,
		MinRadius: compiled.MinRadius,
		MaxRadius: compiled.MaxRadius,
		Seed:      opts.Seed,
		Logger:    prefixed("[search] "),
		Sink:      a,
	})

	schedOpts := scheduler.Options{Notifier: a, Logger: prefixed("[queue] ")}
	if cfg.Cache.Enabled && cfg.Cache.PerWorld > 0 {
		a.cache = search.NewCache(a.engine, cfg.Cache.PerWorld, prefixed("[cache] "))
		schedOpts.Cache = a.cache
	}
	a.sched = scheduler.New(scheduler.Config{
		Enabled:   compiled.QueueEnabled,
		Interval:  compiled.QueueInterval,
		BatchSize: compiled.BatchSize,
		Attempts:  compiled.Attempts,
	}, a.engine, a.host, schedOpts)
	a.sched.OnPost(a.recordTeleport)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.mover = newPeerMover(cfg.ProcessID, cfg.Peers, a.joinAsync)
	a.coord = handoff.NewCoordinator(handoff.Config{
		ProcessID: cfg.ProcessID,
		TTL:       compiled.HandoffTTL,
		Sweep:     compiled.HandoffSweep,
		SpreadMin: float64(cfg.Handoff.GroupSpreadMin),
		SpreadMax: float64(cfg.Handoff.GroupSpreadMax),
	}, a.store, a.mover, a.engine, a.host, handoff.Options{
		Notifier: a,
		OnArrive: func(identity string, to world.Coordinate) {
			a.observer.Publish(protocol.Event{
				Type:     protocol.TypeHandoffDone,
				Identity: identity,
				World:    to.World,
				Location: &to,
			})
			a.sched.RunPost(scheduler.PostEvent{Identity: identity, To: to, At: time.Now()})
		},
		Claims: a.sched,
		Pre: func(identity, worldName string, minR, maxR *int) (string, bool) {
			ev := &scheduler.PreEvent{Identity: identity, World: worldName, MinRadius: minR, MaxRadius: maxR}
			if !a.sched.RunPre(ev) {
				return "", false
			}
			return ev.World, true
		},
		Logger: prefixed("[handoff] "),
	})
	return a, nil
}

func prefixed(p string) *log.Logger {
	return log.New(os.Stdout, p, log.LstdFlags|log.Lmicroseconds)
}

// start launches the world loops, the drain loop, the pruner and, when
// enabled, the cache warmer.
func (a *app) start() {
	a.host.Start(a.ctx)
	a.goRun(func() { a.sched.Run(a.ctx) })
	a.goRun(func() { a.coord.RunPruner(a.ctx) })
	if a.cache != nil {
		a.goRun(func() { a.cache.Run(a.ctx, a.worlds.Names(), 0) })
	}
}

func (a *app) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

func (a *app) Close() {
	a.sched.Close()
	a.cancel()
	a.wg.Wait()
	if a.searchLog != nil {
		_ = a.searchLog.Close()
	}
	if a.teleportLog != nil {
		_ = a.teleportLog.Close()
	}
	a.mirror.Close()
	if a.store != nil {
		_ = a.store.Close()
	}
}

// joinAsync runs the arrival steps for a session without holding up the
// caller; the peer that moved the session does not wait for the search.
func (a *app) joinAsync(identity string) {
	a.goRun(func() {
		if err := a.coord.OnJoin(a.ctx, identity); err != nil {
			a.log.Printf("join %s: %v", identity, err)
		}
	})
}

func (a *app) recordTeleport(ev scheduler.PostEvent) {
	to := ev.To
	a.observer.Publish(protocol.Event{
		Type:     protocol.TypeTeleported,
		Identity: ev.Identity,
		World:    to.World,
		Location: &to,
	})
	if a.teleportLog != nil {
		if err := a.teleportLog.Write(persistlog.TeleportEntry{
			Kind:     protocol.TypeTeleported,
			Identity: ev.Identity,
			World:    to.World,
			Location: &to,
			Cached:   ev.Cached,
			Process:  a.cfg.ProcessID,
		}); err != nil {
			a.log.Printf("teleport audit: %v", err)
		}
	}
}

// SearchExhausted streams the failure to observers and the audit trail.
func (a *app) SearchExhausted(e search.Exhausted) {
	detail := fmt.Sprintf("%d attempts in [%d,%d]", e.Attempts, e.MinRadius, e.MaxRadius)
	if e.Summary != nil {
		detail += ": " + e.Summary.String()
	}
	a.observer.Publish(protocol.Event{
		Type:     protocol.TypeSearchFailed,
		Identity: e.Requester,
		World:    e.World,
		Code:     protocol.ErrNoLocation,
		Detail:   detail,
	})
	if a.searchLog != nil {
		a.searchLog.SearchExhausted(e)
	}
}

// Notify streams a failed teleport and records it in the audit trail.
func (a *app) Notify(identity, code string) {
	a.observer.Notify(identity, code)
	if a.teleportLog == nil {
		return
	}
	if err := a.teleportLog.Write(persistlog.TeleportEntry{
		Kind:     protocol.TypeTeleportFailed,
		Identity: identity,
		Code:     code,
		Process:  a.cfg.ProcessID,
	}); err != nil {
		a.log.Printf("teleport audit: %v", err)
	}
}
