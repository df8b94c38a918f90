package main

import (
	"fmt"
	"net/http"
)

// Minimal Prometheus exposition format.
func (a *app) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	p := a.cfg.ProcessID

	es := a.engine.Stats()
	fmt.Fprintf(rw, "# HELP rtp_search_total Searches by outcome.\n")
	fmt.Fprintf(rw, "# TYPE rtp_search_total counter\n")
	fmt.Fprintf(rw, "rtp_search_total{process=%q,outcome=%q} %d\n", p, "found", es.Found)
	fmt.Fprintf(rw, "rtp_search_total{process=%q,outcome=%q} %d\n", p, "exhausted", es.Exhausted)

	fmt.Fprintf(rw, "# HELP rtp_search_attempts_total Candidate columns sampled.\n")
	fmt.Fprintf(rw, "# TYPE rtp_search_attempts_total counter\n")
	fmt.Fprintf(rw, "rtp_search_attempts_total{process=%q} %d\n", p, es.Attempts)

	fmt.Fprintf(rw, "# HELP rtp_search_chunk_misses_total Attempts skipped because the chunk was not available.\n")
	fmt.Fprintf(rw, "# TYPE rtp_search_chunk_misses_total counter\n")
	fmt.Fprintf(rw, "rtp_search_chunk_misses_total{process=%q} %d\n", p, es.ChunkMisses)

	ss := a.sched.Stats()
	fmt.Fprintf(rw, "# HELP rtp_queue_depth Requests waiting for a search slot.\n")
	fmt.Fprintf(rw, "# TYPE rtp_queue_depth gauge\n")
	fmt.Fprintf(rw, "rtp_queue_depth{process=%q} %d\n", p, a.sched.QueueLen())

	fmt.Fprintf(rw, "# HELP rtp_teleport_total Teleport requests by result.\n")
	fmt.Fprintf(rw, "# TYPE rtp_teleport_total counter\n")
	fmt.Fprintf(rw, "rtp_teleport_total{process=%q,result=%q} %d\n", p, "requested", ss.Requested)
	fmt.Fprintf(rw, "rtp_teleport_total{process=%q,result=%q} %d\n", p, "teleported", ss.Teleported)
	fmt.Fprintf(rw, "rtp_teleport_total{process=%q,result=%q} %d\n", p, "failed", ss.Failed)
	fmt.Fprintf(rw, "rtp_teleport_total{process=%q,result=%q} %d\n", p, "duplicate", ss.Duplicates)
	fmt.Fprintf(rw, "rtp_teleport_total{process=%q,result=%q} %d\n", p, "vetoed", ss.Vetoed)
	fmt.Fprintf(rw, "rtp_teleport_total{process=%q,result=%q} %d\n", p, "cancelled", ss.Cancelled)

	if a.cache != nil {
		hits, misses := a.cache.HitsMisses()
		fmt.Fprintf(rw, "# HELP rtp_cache_total Pre-warmed location lookups.\n")
		fmt.Fprintf(rw, "# TYPE rtp_cache_total counter\n")
		fmt.Fprintf(rw, "rtp_cache_total{process=%q,result=%q} %d\n", p, "hit", hits)
		fmt.Fprintf(rw, "rtp_cache_total{process=%q,result=%q} %d\n", p, "miss", misses)
		fmt.Fprintf(rw, "# HELP rtp_cache_size Pre-warmed locations per world.\n")
		fmt.Fprintf(rw, "# TYPE rtp_cache_size gauge\n")
		for _, w := range a.worlds.Names() {
			fmt.Fprintf(rw, "rtp_cache_size{process=%q,world=%q} %d\n", p, w, a.cache.Len(w))
		}
	}

	cs := a.coord.Stats()
	fmt.Fprintf(rw, "# HELP rtp_handoff_total Handoff records by event.\n")
	fmt.Fprintf(rw, "# TYPE rtp_handoff_total counter\n")
	fmt.Fprintf(rw, "rtp_handoff_total{process=%q,event=%q} %d\n", p, "sent", cs.Sent)
	fmt.Fprintf(rw, "rtp_handoff_total{process=%q,event=%q} %d\n", p, "completed", cs.Completed)
	fmt.Fprintf(rw, "rtp_handoff_total{process=%q,event=%q} %d\n", p, "failed", cs.Failed)
	fmt.Fprintf(rw, "rtp_handoff_total{process=%q,event=%q} %d\n", p, "consumed", cs.Consumed)
	fmt.Fprintf(rw, "rtp_handoff_total{process=%q,event=%q} %d\n", p, "pruned", cs.Pruned)

	degraded := 0
	if cs.Degraded {
		degraded = 1
	}
	fmt.Fprintf(rw, "# HELP rtp_handoff_degraded 1 while the shared store is unreachable.\n")
	fmt.Fprintf(rw, "# TYPE rtp_handoff_degraded gauge\n")
	fmt.Fprintf(rw, "rtp_handoff_degraded{process=%q,backend=%q} %d\n", p, a.backend, degraded)

	fmt.Fprintf(rw, "# HELP rtp_world_loaded_chunks Loaded chunk count.\n")
	fmt.Fprintf(rw, "# TYPE rtp_world_loaded_chunks gauge\n")
	for _, w := range a.host.Worlds() {
		fmt.Fprintf(rw, "rtp_world_loaded_chunks{process=%q,world=%q} %d\n", p, w.Name(), w.LoadedChunks())
	}

	published, dropped := a.observer.Counters()
	fmt.Fprintf(rw, "# HELP rtp_observer_subscribers Connected event stream clients.\n")
	fmt.Fprintf(rw, "# TYPE rtp_observer_subscribers gauge\n")
	fmt.Fprintf(rw, "rtp_observer_subscribers{process=%q} %d\n", p, a.observer.Subscribers())
	fmt.Fprintf(rw, "# HELP rtp_observer_events_total Events published and dropped on slow clients.\n")
	fmt.Fprintf(rw, "# TYPE rtp_observer_events_total counter\n")
	fmt.Fprintf(rw, "rtp_observer_events_total{process=%q,result=%q} %d\n", p, "published", published)
	fmt.Fprintf(rw, "rtp_observer_events_total{process=%q,result=%q} %d\n", p, "dropped", dropped)

	if a.mirror != nil {
		ms := a.mirror.Stats()
		fmt.Fprintf(rw, "# HELP rtp_audit_mirror_uploads_total Audit segment uploads by result.\n")
		fmt.Fprintf(rw, "# TYPE rtp_audit_mirror_uploads_total counter\n")
		fmt.Fprintf(rw, "rtp_audit_mirror_uploads_total{process=%q,result=%q} %d\n", p, "ok", ms.Uploaded)
		fmt.Fprintf(rw, "rtp_audit_mirror_uploads_total{process=%q,result=%q} %d\n", p, "failed", ms.Failed)
		fmt.Fprintf(rw, "rtp_audit_mirror_uploads_total{process=%q,result=%q} %d\n", p, "dropped", ms.Dropped)
		fmt.Fprintf(rw, "# HELP rtp_audit_mirror_pending Segments waiting for upload.\n")
		fmt.Fprintf(rw, "# TYPE rtp_audit_mirror_pending gauge\n")
		fmt.Fprintf(rw, "rtp_audit_mirror_pending{process=%q} %d\n", p, ms.Pending)
	}
}
