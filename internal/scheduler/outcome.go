package scheduler

import (
	"context"
	"sync"

	"voxelrtp.ai/internal/world"
)

type Result struct {
	Teleported bool
	Location   world.Coordinate
	// Code is a protocol error code; empty on success.
	Code string
}

// Outcome is the deferred result of one teleport request. It resolves
// exactly once.
type Outcome struct {
	once sync.Once
	done chan struct{}
	res  Result
}

func newOutcome() *Outcome { return &Outcome{done: make(chan struct{})} }

func (o *Outcome) resolve(r Result) bool {
	first := false
	o.once.Do(func() {
		o.res = r
		close(o.done)
		first = true
	})
	return first
}

func (o *Outcome) Done() <-chan struct{} { return o.done }

// Result is only meaningful after Done is closed.
func (o *Outcome) Result() Result {
	select {
	case <-o.done:
		return o.res
	default:
		return Result{}
	}
}

func (o *Outcome) Wait(ctx context.Context) (Result, error) {
	select {
	case <-o.done:
		return o.res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
