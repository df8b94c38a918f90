package search

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"voxelrtp.ai/internal/world"
)

// Cache holds pre-warmed locations per world. Spots are found with the
// world's default radii, so callers only take from it for requests that
// do not override them.
type Cache struct {
	engine   *Engine
	perWorld int
	log      *log.Logger

	mu    sync.Mutex
	spots map[string][]world.Coordinate

	hits   int64
	misses int64
}

func NewCache(engine *Engine, perWorld int, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(os.Stdout, "[cache] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Cache{engine: engine, perWorld: perWorld, log: logger, spots: map[string][]world.Coordinate{}}
}

func (c *Cache) Len(worldName string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.spots[worldName])
}

// Warm tops the world up to perWorld spots and returns how many were added.
func (c *Cache) Warm(ctx context.Context, worldName string) (int, error) {
	added := 0
	for c.Len(worldName) < c.perWorld {
		pos, ok, err := c.engine.FindSafeLocation(ctx, Request{World: worldName})
		if err != nil {
			return added, err
		}
		if !ok {
			break
		}
		c.mu.Lock()
		c.spots[worldName] = append(c.spots[worldName], pos)
		c.mu.Unlock()
		added++
	}
	return added, nil
}

// Take pops the oldest spot that still validates. Stale spots are dropped.
func (c *Cache) Take(ctx context.Context, worldName string) (world.Coordinate, bool) {
	for {
		c.mu.Lock()
		list := c.spots[worldName]
		if len(list) == 0 {
			c.misses++
			c.mu.Unlock()
			return world.Coordinate{}, false
		}
		pos := list[0]
		c.spots[worldName] = list[1:]
		c.mu.Unlock()

		ok, err := c.engine.Revalidate(ctx, pos)
		if err != nil {
			c.log.Printf("revalidate %s: %v", pos, err)
			return world.Coordinate{}, false
		}
		if ok {
			c.mu.Lock()
			c.hits++
			c.mu.Unlock()
			return pos, true
		}
		c.log.Printf("dropping stale spot %s", pos)
	}
}

func (c *Cache) HitsMisses() (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Run warms every listed world on each tick until ctx is done.
func (c *Cache) Run(ctx context.Context, worlds []string, every time.Duration) {
	if every <= 0 {
		every = 30 * time.Second
	}
	warm := func() {
		for _, w := range worlds {
			n, err := c.Warm(ctx, w)
			if err != nil {
				if ctx.Err() == nil {
					c.log.Printf("warm %s: %v", w, err)
				}
				return
			}
			if n > 0 {
				c.log.Printf("warmed %s: +%d", w, n)
			}
		}
	}
	warm()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			warm()
		}
	}
}
