package search

import (
	"context"
	"io"
	"log"
	"testing"
)

func TestCache_WarmAndTake(t *testing.T) {
	host := &fakeHost{col: flatGrass}
	e := newTestEngine(t, normalWorld(2000), host, nil)
	c := NewCache(e, 3, log.New(io.Discard, "", 0))

	n, err := c.Warm(context.Background(), "world")
	if err != nil || n != 3 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if n, _ := c.Warm(context.Background(), "world"); n != 0 {
		t.Fatalf("second warm added %d", n)
	}
	pos, ok := c.Take(context.Background(), "world")
	if !ok || pos.Y != 64 {
		t.Fatalf("pos=%v ok=%v", pos, ok)
	}
	if c.Len("world") != 2 {
		t.Fatalf("len=%d", c.Len("world"))
	}
}

func TestCache_DropsStaleSpots(t *testing.T) {
	host := &fakeHost{col: flatGrass}
	e := newTestEngine(t, normalWorld(2000), host, nil)
	c := NewCache(e, 2, log.New(io.Discard, "", 0))
	if _, err := c.Warm(context.Background(), "world"); err != nil {
		t.Fatalf("warm: %v", err)
	}
	host.setColumn(allAir)
	if _, ok := c.Take(context.Background(), "world"); ok {
		t.Fatalf("stale spot returned")
	}
	if c.Len("world") != 0 {
		t.Fatalf("stale spots kept: %d", c.Len("world"))
	}
	if hits, misses := c.HitsMisses(); hits != 0 || misses != 1 {
		t.Fatalf("hits=%d misses=%d", hits, misses)
	}
}
