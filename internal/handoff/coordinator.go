package handoff

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

// Searcher is the local search capability used on arrival.
type Searcher interface {
	FindSafeLocation(ctx context.Context, req search.Request) (world.Coordinate, bool, error)
	ResolveGround(ctx context.Context, worldName string, x, z int) (world.Coordinate, bool, error)
	Spread(x, z int, minR, maxR float64) (int, int)
}

type Notifier interface {
	Notify(identity, code string)
}

type Config struct {
	ProcessID string
	TTL       time.Duration
	Sweep     time.Duration
	SpreadMin float64
	SpreadMax float64
}

// Claims reserves an identity for one search at a time. The local teleport
// queue implements it so queued and arrival searches exclude each other.
type Claims interface {
	TryClaim(identity string) bool
	Release(identity string)
}

type Options struct {
	Notifier Notifier
	// OnArrive runs after a consumed record relocates its requester.
	OnArrive func(identity string, to world.Coordinate)
	Claims   Claims
	// Pre screens an arrival search the way local requests are screened. It
	// returns the world to search, or false to veto.
	Pre    func(identity, worldName string, minR, maxR *int) (string, bool)
	Logger *log.Logger
	Now    func() time.Time
}

type Stats struct {
	Sent      int64
	Completed int64
	Failed    int64
	Consumed  int64
	Pruned    int64
	Degraded  bool
}

type Coordinator struct {
	cfg       Config
	store     Store
	mover     SessionMover
	search    Searcher
	relocator world.Relocator
	opts      Options
	log       *log.Logger

	mu      sync.Mutex
	present map[string]struct{}
	busy    map[string]struct{}
	again   map[string]struct{}

	degraded  atomic.Bool
	sent      atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	consumed  atomic.Int64
	pruned    atomic.Int64
}

func NewCoordinator(cfg Config, store Store, mover SessionMover, s Searcher, r world.Relocator, opts Options) *Coordinator {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Sweep <= 0 {
		cfg.Sweep = time.Minute
	}
	if cfg.SpreadMax <= 0 {
		cfg.SpreadMin, cfg.SpreadMax = 2, 8
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stdout, "[handoff] ", log.LstdFlags|log.Lmicroseconds)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		cfg:       cfg,
		store:     store,
		mover:     mover,
		search:    s,
		relocator: r,
		opts:      opts,
		log:       opts.Logger,
		present:   map[string]struct{}{},
		busy:      map[string]struct{}{},
		again:     map[string]struct{}{},
	}
}

func (c *Coordinator) Degraded() bool { return c.degraded.Load() }

func (c *Coordinator) Stats() Stats {
	return Stats{
		Sent:      c.sent.Load(),
		Completed: c.completed.Load(),
		Failed:    c.failed.Load(),
		Consumed:  c.consumed.Load(),
		Pruned:    c.pruned.Load(),
		Degraded:  c.degraded.Load(),
	}
}

// storeErr logs a storage failure, flips the degraded flag and wraps err
// with ErrUnavailable. A record rejected by validation is returned as is
// and leaves the flag alone.
func (c *Coordinator) storeErr(op string, err error) error {
	if errors.Is(err, ErrInvalidRecord) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !c.degraded.Swap(true) {
		c.log.Printf("store degraded: %s: %v", op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func (c *Coordinator) storeOK() {
	if c.degraded.Swap(false) {
		c.log.Printf("store recovered")
	}
}

func (c *Coordinator) newRecord(identity, worldName string, kind Kind, minR, maxR *int) Record {
	return Record{
		RequesterID: identity,
		Status:      StatusPending,
		Kind:        kind,
		WorldName:   worldName,
		CreatedAt:   c.opts.Now().UTC(),
		MinRadius:   minR,
		MaxRadius:   maxR,
		Origin:      c.cfg.ProcessID,
	}
}

// SendFindLocationRequest writes a PENDING record and transfers the session.
// It does not wait for the search.
func (c *Coordinator) SendFindLocationRequest(ctx context.Context, identity, targetProcess, worldName string, minR, maxR *int) error {
	rec := c.newRecord(identity, worldName, KindSingle, minR, maxR)
	if err := c.store.Put(ctx, rec); err != nil {
		return c.storeErr("put", err)
	}
	c.storeOK()
	if err := c.mover.Transfer(ctx, identity, targetProcess); err != nil {
		c.discard(ctx, identity)
		return fmt.Errorf("transfer %s to %s: %w", identity, targetProcess, err)
	}
	c.sent.Add(1)
	c.log.Printf("sent %s to %s for %s", identity, targetProcess, worldName)
	return nil
}

// SendGroupRequest writes one GROUP record for the leader, listing the
// members, and one per member pointing back at the leader; then transfers
// every session, leader first.
func (c *Coordinator) SendGroupRequest(ctx context.Context, leader string, members []string, targetProcess, worldName string, minR, maxR *int) error {
	lead := c.newRecord(leader, worldName, KindGroup, minR, maxR)
	lead.Members = append([]string(nil), members...)
	if err := c.store.Put(ctx, lead); err != nil {
		return c.storeErr("put", err)
	}
	written := []string{leader}
	for _, m := range members {
		rec := c.newRecord(m, worldName, KindGroup, minR, maxR)
		rec.LeaderID = leader
		if err := c.store.Put(ctx, rec); err != nil {
			c.discard(ctx, written...)
			return c.storeErr("put", err)
		}
		written = append(written, m)
	}
	c.storeOK()
	for _, id := range written {
		if err := c.mover.Transfer(ctx, id, targetProcess); err != nil {
			c.discard(ctx, written...)
			return fmt.Errorf("transfer %s to %s: %w", id, targetProcess, err)
		}
	}
	c.sent.Add(1)
	c.log.Printf("sent group %s (+%d) to %s for %s", leader, len(members), targetProcess, worldName)
	return nil
}

// discard removes records written for a request that could not be sent.
func (c *Coordinator) discard(ctx context.Context, ids ...string) {
	for _, id := range ids {
		if err := c.store.Delete(ctx, id); err != nil {
			c.log.Printf("discard record %s: %v", id, err)
		}
	}
}

// claim reserves identity for this process's arrival steps. When the identity
// is already held and again is set, the holder repeats its consume step
// before letting go.
func (c *Coordinator) claim(identity string, again bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.busy[identity]; held {
		if again {
			c.again[identity] = struct{}{}
		}
		return false
	}
	if c.opts.Claims != nil && !c.opts.Claims.TryClaim(identity) {
		return false
	}
	c.busy[identity] = struct{}{}
	return true
}

// release drops the claim on identity. Unless force is set, a pending repeat
// request keeps the claim and release reports true.
func (c *Coordinator) release(identity string, force bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.again[identity]; ok {
		delete(c.again, identity)
		if !force {
			return true
		}
	}
	delete(c.busy, identity)
	if c.opts.Claims != nil {
		c.opts.Claims.Release(identity)
	}
	return false
}

func (c *Coordinator) get(ctx context.Context, identity string) (Record, bool, error) {
	rec, err := c.store.Get(ctx, identity)
	if errors.Is(err, ErrNotFound) {
		c.storeOK()
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, c.storeErr("get", err)
	}
	c.storeOK()
	return rec, true, nil
}

// HandleArrival fulfils a PENDING record owned by identity: it searches
// locally and completes the record, or deletes it when nothing is found.
// Member records of a group wait for their leader and are skipped. While
// another arrival step holds identity the call is a no-op.
func (c *Coordinator) HandleArrival(ctx context.Context, identity string) (bool, error) {
	if !c.claim(identity, false) {
		return false, nil
	}
	done, err := c.handleArrival(ctx, identity)
	if err != nil {
		c.release(identity, true)
		return done, err
	}
	if c.release(identity, false) {
		_, err = c.consumeHeld(ctx, identity)
	}
	return done, err
}

func (c *Coordinator) handleArrival(ctx context.Context, identity string) (bool, error) {
	rec, ok, err := c.get(ctx, identity)
	if err != nil || !ok {
		return false, err
	}
	if rec.Status != StatusPending || rec.LeaderID != "" {
		return false, nil
	}

	worldName := rec.WorldName
	if c.opts.Pre != nil {
		w, allowed := c.opts.Pre(identity, worldName, rec.MinRadius, rec.MaxRadius)
		if !allowed {
			c.failed.Add(1)
			c.log.Printf("arrival search for %s vetoed; record dropped", identity)
			return true, c.drop(ctx, rec, protocol.ErrVetoed)
		}
		worldName = w
	}

	loc, found, err := c.search.FindSafeLocation(ctx, search.Request{
		World:     worldName,
		MinRadius: rec.MinRadius,
		MaxRadius: rec.MaxRadius,
		Requester: identity,
	})
	if err != nil && !errors.Is(err, world.ErrUnknownWorld) {
		return false, err
	}
	if !found {
		c.failed.Add(1)
		code := protocol.ErrNoLocation
		if err != nil {
			code = protocol.ErrWorldNotFound
		}
		c.log.Printf("no location for %s in %s; record dropped", identity, worldName)
		return true, c.drop(ctx, rec, code)
	}

	if err := c.store.Complete(ctx, identity, loc); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotPending) {
			return false, nil
		}
		return false, c.storeErr("complete", err)
	}
	for _, m := range rec.Members {
		if err := c.store.Complete(ctx, m, loc); err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNotPending) {
			return true, c.storeErr("complete", err)
		}
	}
	c.completed.Add(1)
	return true, nil
}

// drop deletes rec and its members' records and tells each of them why.
func (c *Coordinator) drop(ctx context.Context, rec Record, code string) error {
	for _, id := range append([]string{rec.RequesterID}, rec.Members...) {
		if err := c.store.Delete(ctx, id); err != nil {
			return c.storeErr("delete", err)
		}
		if c.opts.Notifier != nil {
			c.opts.Notifier.Notify(id, code)
		}
	}
	return nil
}

// ConsumeCompleted relocates identity to its COMPLETE record's location and
// deletes the record. A missing or still PENDING record is a no-op, as is a
// call while another arrival step holds identity.
func (c *Coordinator) ConsumeCompleted(ctx context.Context, identity string) (bool, error) {
	if !c.claim(identity, false) {
		return false, nil
	}
	return c.consumeHeld(ctx, identity)
}

// consumeHeld consumes identity under its claim, repeating while a leader
// asked for another pass, and releases the claim.
func (c *Coordinator) consumeHeld(ctx context.Context, identity string) (bool, error) {
	moved := false
	for {
		ok, err := c.consume(ctx, identity)
		moved = moved || ok
		if err != nil {
			c.release(identity, true)
			return moved, err
		}
		if !c.release(identity, false) {
			return moved, nil
		}
	}
}

func (c *Coordinator) consume(ctx context.Context, identity string) (bool, error) {
	rec, ok, err := c.get(ctx, identity)
	if err != nil || !ok {
		return false, err
	}
	if rec.Status != StatusComplete || rec.Location == nil {
		return false, nil
	}

	dest := *rec.Location
	if rec.Kind == KindGroup {
		x, z := c.search.Spread(dest.X, dest.Z, c.cfg.SpreadMin, c.cfg.SpreadMax)
		if pos, found, err := c.search.ResolveGround(ctx, dest.World, x, z); err == nil && found {
			dest = pos
		}
	}

	moved, err := c.relocator.Relocate(ctx, identity, dest)
	if err != nil {
		return false, fmt.Errorf("relocate %s: %w", identity, err)
	}
	if !moved {
		if c.opts.Notifier != nil {
			c.opts.Notifier.Notify(identity, protocol.ErrRelocateFailed)
		}
		return false, nil
	}
	if c.opts.OnArrive != nil {
		c.opts.OnArrive(identity, dest)
	}
	if err := c.store.Delete(ctx, identity); err != nil {
		return true, c.storeErr("delete", err)
	}
	c.consumed.Add(1)
	return true, nil
}

// OnJoin runs both arrival steps for a session that just joined this process.
// A join for an identity whose arrival is already running is a no-op. When a
// group leader's search completes, members already present are consumed too.
func (c *Coordinator) OnJoin(ctx context.Context, identity string) error {
	c.mu.Lock()
	c.present[identity] = struct{}{}
	c.mu.Unlock()

	if !c.claim(identity, false) {
		c.log.Printf("arrival for %s already in progress", identity)
		return nil
	}
	rec, ok, err := c.get(ctx, identity)
	if err != nil || !ok {
		c.release(identity, true)
		return err
	}
	completed, err := c.handleArrival(ctx, identity)
	if err != nil {
		c.release(identity, true)
		return err
	}
	if _, err := c.consumeHeld(ctx, identity); err != nil {
		return err
	}
	if !completed || len(rec.Members) == 0 {
		return nil
	}
	for _, m := range rec.Members {
		if !c.isPresent(m) || !c.claim(m, true) {
			continue
		}
		if _, err := c.consumeHeld(ctx, m); err != nil {
			c.log.Printf("consume member %s: %v", m, err)
		}
	}
	return nil
}

func (c *Coordinator) OnLeave(identity string) {
	c.mu.Lock()
	delete(c.present, identity)
	c.mu.Unlock()
}

func (c *Coordinator) isPresent(identity string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.present[identity]
	return ok
}

// Prune deletes records created before now-TTL.
func (c *Coordinator) Prune(ctx context.Context) (int, error) {
	cutoff := c.opts.Now().Add(-c.cfg.TTL)
	n, err := c.store.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, c.storeErr("prune", err)
	}
	c.storeOK()
	c.pruned.Add(int64(n))
	if n > 0 {
		c.log.Printf("pruned %d abandoned records", n)
	}
	return n, nil
}

// RunPruner sweeps on every Sweep interval until ctx is done.
func (c *Coordinator) RunPruner(ctx context.Context) {
	t := time.NewTicker(c.cfg.Sweep)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = c.Prune(ctx)
		}
	}
}
