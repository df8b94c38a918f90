// Package scheduler throttles teleport searches through a FIFO queue that is
// drained in fixed-size batches on a fixed cadence.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"voxelrtp.ai/internal/protocol"
	"voxelrtp.ai/internal/search"
	"voxelrtp.ai/internal/world"
)

var (
	ErrDuplicateRequest = errors.New("teleport already in progress")
	ErrVetoed           = errors.New("teleport vetoed")
	ErrClosed           = errors.New("scheduler closed")
)

type State string

const (
	StateNone     State = ""
	StateEnqueued State = "ENQUEUED"
	StateInSearch State = "IN_SEARCH"
)

type Request struct {
	Identity  string
	World     string
	MinRadius *int
	MaxRadius *int
}

type Searcher interface {
	FindSafeLocation(ctx context.Context, req search.Request) (world.Coordinate, bool, error)
}

// SpotCache hands out pre-warmed locations.
type SpotCache interface {
	Take(ctx context.Context, worldName string) (world.Coordinate, bool)
}

// Notifier tells a requester why a teleport failed.
type Notifier interface {
	Notify(identity, code string)
}

type Config struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
	Attempts  int
}

type Stats struct {
	Requested  int64
	Duplicates int64
	Vetoed     int64
	Teleported int64
	Failed     int64
	Cancelled  int64
	CacheHits  int64
}

type entry struct {
	req      Request
	outcome  *Outcome
	queuedAt time.Time
}

type Scheduler struct {
	cfg       Config
	search    Searcher
	relocator world.Relocator
	notifier  Notifier
	cache     SpotCache
	log       *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	queue  []*entry
	states map[string]State
	closed bool

	hookMu sync.RWMutex
	pre    []PreHook
	post   []PostHook

	requested  atomic.Int64
	duplicates atomic.Int64
	vetoed     atomic.Int64
	teleported atomic.Int64
	failed     atomic.Int64
	cancelled  atomic.Int64
	cacheHits  atomic.Int64
}

type Options struct {
	Notifier Notifier
	Cache    SpotCache
	Logger   *log.Logger
}

func New(cfg Config, s Searcher, r world.Relocator, opts Options) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[queue] ", log.LstdFlags|log.Lmicroseconds)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:       cfg,
		search:    s,
		relocator: r,
		notifier:  opts.Notifier,
		cache:     opts.Cache,
		log:       opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
		states:    map[string]State{},
	}
}

// RequestTeleport admits a request. With queueing disabled the search starts
// immediately; otherwise the entry waits for the drain loop. Duplicate
// identities are rejected without touching the queue.
func (s *Scheduler) RequestTeleport(ctx context.Context, req Request) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.State(req.Identity) != StateNone {
		s.duplicates.Add(1)
		return nil, ErrDuplicateRequest
	}

	ev := &PreEvent{Identity: req.Identity, World: req.World, MinRadius: req.MinRadius, MaxRadius: req.MaxRadius}
	if !s.RunPre(ev) {
		s.vetoed.Add(1)
		return nil, ErrVetoed
	}
	req.World = ev.World

	e := &entry{req: req, outcome: newOutcome(), queuedAt: time.Now()}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if _, busy := s.states[req.Identity]; busy {
		s.mu.Unlock()
		s.duplicates.Add(1)
		return nil, ErrDuplicateRequest
	}
	if s.cfg.Enabled {
		s.states[req.Identity] = StateEnqueued
		s.queue = append(s.queue, e)
	} else {
		s.states[req.Identity] = StateInSearch
		s.wg.Add(1)
	}
	s.mu.Unlock()
	s.requested.Add(1)

	if !s.cfg.Enabled {
		go s.service(e)
	}
	return e.outcome, nil
}

// Drain pops up to one batch in FIFO order and starts servicing each entry.
// It returns the number popped.
func (s *Scheduler) Drain() int {
	s.mu.Lock()
	if s.closed || len(s.queue) == 0 {
		s.mu.Unlock()
		return 0
	}
	n := s.cfg.BatchSize
	if n > len(s.queue) {
		n = len(s.queue)
	}
	batch := append([]*entry(nil), s.queue[:n]...)
	s.queue = s.queue[n:]
	if len(s.queue) == 0 {
		s.queue = nil
	}
	for _, e := range batch {
		s.states[e.req.Identity] = StateInSearch
	}
	s.wg.Add(len(batch))
	s.mu.Unlock()

	for _, e := range batch {
		go s.service(e)
	}
	return len(batch)
}

// Run drains one batch per interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		<-ctx.Done()
		return
	}
	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Drain()
		}
	}
}

func (s *Scheduler) service(e *entry) {
	defer s.wg.Done()
	id := e.req.Identity
	res := s.teleport(e)

	s.mu.Lock()
	delete(s.states, id)
	s.mu.Unlock()

	if res.Teleported {
		s.teleported.Add(1)
	} else {
		s.failed.Add(1)
		if s.notifier != nil {
			s.notifier.Notify(id, res.Code)
		}
	}
	e.outcome.resolve(res)
}

func (s *Scheduler) teleport(e *entry) Result {
	ctx := s.ctx
	req := e.req
	var (
		pos    world.Coordinate
		ok     bool
		cached bool
	)
	if s.cache != nil && req.MinRadius == nil && req.MaxRadius == nil {
		pos, ok = s.cache.Take(ctx, req.World)
		cached = ok
		if ok {
			s.cacheHits.Add(1)
		}
	}
	if !ok {
		var err error
		pos, ok, err = s.search.FindSafeLocation(ctx, search.Request{
			World:     req.World,
			MinRadius: req.MinRadius,
			MaxRadius: req.MaxRadius,
			Attempts:  s.cfg.Attempts,
			Requester: req.Identity,
		})
		if err != nil {
			return s.failure(req, err)
		}
	}
	if !ok {
		return Result{Code: protocol.ErrNoLocation}
	}

	moved, err := s.relocator.Relocate(ctx, req.Identity, pos)
	if err != nil {
		return s.failure(req, fmt.Errorf("relocate: %w", err))
	}
	if !moved {
		return Result{Code: protocol.ErrRelocateFailed}
	}
	s.RunPost(PostEvent{
		Identity: req.Identity,
		To:       pos,
		Cached:   cached,
		Queued:   time.Since(e.queuedAt),
		At:       time.Now().UTC(),
	})
	return Result{Teleported: true, Location: pos}
}

func (s *Scheduler) failure(req Request, err error) Result {
	switch {
	case errors.Is(err, world.ErrUnknownWorld):
		return Result{Code: protocol.ErrWorldNotFound}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Result{Code: protocol.ErrShuttingDown}
	}
	s.log.Printf("teleport %s to %s: %v", req.Identity, req.World, err)
	return Result{Code: protocol.ErrInternal}
}

// Cancel removes a still-queued entry and resolves it false. Entries already
// in search are not interrupted.
func (s *Scheduler) Cancel(identity string) bool {
	s.mu.Lock()
	var found *entry
	for i, e := range s.queue {
		if e.req.Identity == identity {
			found = e
			s.queue = append(s.queue[:i:i], s.queue[i+1:]...)
			break
		}
	}
	if found != nil {
		delete(s.states, identity)
	}
	s.mu.Unlock()
	if found == nil {
		return false
	}
	s.cancelled.Add(1)
	found.outcome.resolve(Result{Code: protocol.ErrCancelled})
	return true
}

// TryClaim marks identity IN_SEARCH for a search run outside the queue. It
// fails when the identity already has a queued or running teleport, or after
// Close. A successful claim must be returned with Release.
func (s *Scheduler) TryClaim(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if _, busy := s.states[identity]; busy {
		return false
	}
	s.states[identity] = StateInSearch
	return true
}

func (s *Scheduler) Release(identity string) {
	s.mu.Lock()
	if s.states[identity] == StateInSearch {
		delete(s.states, identity)
	}
	s.mu.Unlock()
}

func (s *Scheduler) State(identity string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[identity]
}

func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Requested:  s.requested.Load(),
		Duplicates: s.duplicates.Load(),
		Vetoed:     s.vetoed.Load(),
		Teleported: s.teleported.Load(),
		Failed:     s.failed.Load(),
		Cancelled:  s.cancelled.Load(),
		CacheHits:  s.cacheHits.Load(),
	}
}

// Close fails every queued entry, cancels in-flight searches and waits for
// them to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := s.queue
	s.queue = nil
	for _, e := range pending {
		delete(s.states, e.req.Identity)
	}
	s.mu.Unlock()

	for _, e := range pending {
		e.outcome.resolve(Result{Code: protocol.ErrShuttingDown})
	}
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	s.states = map[string]State{}
	s.mu.Unlock()
}
