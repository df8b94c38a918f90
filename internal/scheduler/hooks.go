package scheduler

import (
	"time"

	"voxelrtp.ai/internal/world"
)

// PreEvent is passed to pre-search hooks. Hooks may rewrite World.
type PreEvent struct {
	Identity  string
	World     string
	MinRadius *int
	MaxRadius *int
}

// PreHook returns false to veto the teleport.
type PreHook func(ev *PreEvent) bool

// PostEvent fires after a successful relocation.
type PostEvent struct {
	Identity string
	To       world.Coordinate
	Cached   bool
	Queued   time.Duration
	At       time.Time
}

type PostHook func(ev PostEvent)

func (s *Scheduler) OnPre(h PreHook) {
	s.hookMu.Lock()
	s.pre = append(s.pre, h)
	s.hookMu.Unlock()
}

func (s *Scheduler) OnPost(h PostHook) {
	s.hookMu.Lock()
	s.post = append(s.post, h)
	s.hookMu.Unlock()
}

// RunPre runs the pre hooks in registration order and reports whether every
// hook allowed the teleport. Arrival searches started by the handoff
// coordinator pass through it as well.
func (s *Scheduler) RunPre(ev *PreEvent) bool {
	s.hookMu.RLock()
	hooks := append([]PreHook(nil), s.pre...)
	s.hookMu.RUnlock()
	for _, h := range hooks {
		if !h(ev) {
			return false
		}
	}
	return true
}

// RunPost invokes the post hooks in registration order. The handoff
// coordinator reuses it for arrivals it relocates itself.
func (s *Scheduler) RunPost(ev PostEvent) {
	s.hookMu.RLock()
	hooks := append([]PostHook(nil), s.post...)
	s.hookMu.RUnlock()
	for _, h := range hooks {
		h(ev)
	}
}
