package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"voxelrtp.ai/internal/handoff"
	"voxelrtp.ai/internal/protocol"
	"voxelrtp.ai/internal/scheduler"
)

const maxBody = 64 * 1024

func (a *app) routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/metrics", a.handleMetrics)
	mux.HandleFunc("/v1/rtp", a.handleRTP)
	mux.HandleFunc("/v1/rtp/cross", a.handleCross)
	mux.HandleFunc("/v1/rtp/state", a.handleState)
	mux.HandleFunc("/v1/sessions/join", a.handleJoin)
	mux.HandleFunc("/v1/sessions/leave", a.handleLeave)
}

// adminRoutes are loopback-only.
func (a *app) adminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/admin/v1/events/ws", a.observer.WSHandler())
	mux.HandleFunc("/admin/v1/handoff", a.handleAdminHandoff)
	mux.HandleFunc("/admin/v1/handoff/prune", a.handleAdminPrune)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeFail(rw http.ResponseWriter, status int, code string) {
	writeJSON(rw, status, protocol.Fail(code))
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (a *app) handleHealth(rw http.ResponseWriter, r *http.Request) {
	if a.coord.Degraded() {
		rw.WriteHeader(http.StatusServiceUnavailable)
		_, _ = rw.Write([]byte("degraded"))
		return
	}
	rw.WriteHeader(200)
	_, _ = rw.Write([]byte("ok"))
}

func (a *app) handleRTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req protocol.RTPRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Identity) == "" {
		writeFail(rw, http.StatusBadRequest, protocol.ErrBadRequest)
		return
	}
	if req.World == "" {
		if pos, ok, err := a.host.Locate(r.Context(), req.Identity); err == nil && ok {
			req.World = pos.World
		}
	}
	if _, err := a.worlds.Get(req.World); err != nil {
		writeFail(rw, http.StatusNotFound, protocol.ErrWorldNotFound)
		return
	}

	out, err := a.sched.RequestTeleport(a.ctx, scheduler.Request{
		Identity:  req.Identity,
		World:     req.World,
		MinRadius: req.MinRadius,
		MaxRadius: req.MaxRadius,
	})
	switch {
	case errors.Is(err, scheduler.ErrDuplicateRequest):
		writeFail(rw, http.StatusConflict, protocol.ErrDuplicateRequest)
		return
	case errors.Is(err, scheduler.ErrVetoed):
		writeFail(rw, http.StatusForbidden, protocol.ErrVetoed)
		return
	case errors.Is(err, scheduler.ErrClosed), errors.Is(err, context.Canceled):
		writeFail(rw, http.StatusServiceUnavailable, protocol.ErrShuttingDown)
		return
	case err != nil:
		writeFail(rw, http.StatusInternalServerError, protocol.ErrInternal)
		return
	}

	if !req.Wait {
		resp := protocol.OK()
		resp.State = string(a.sched.State(req.Identity))
		writeJSON(rw, http.StatusAccepted, resp)
		return
	}
	res, err := out.Wait(r.Context())
	if err != nil {
		// The teleport keeps running; the caller just stopped waiting.
		return
	}
	writeJSON(rw, http.StatusOK, resultResponse(res))
}

func resultResponse(res scheduler.Result) protocol.Response {
	if !res.Teleported {
		code := res.Code
		if code == "" {
			code = protocol.ErrInternal
		}
		return protocol.Fail(code)
	}
	loc := res.Location
	resp := protocol.OK()
	resp.Location = &loc
	return resp
}

func (a *app) handleState(rw http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("identity"))
	if id == "" {
		writeFail(rw, http.StatusBadRequest, protocol.ErrBadRequest)
		return
	}
	resp := protocol.OK()
	resp.State = string(a.sched.State(id))
	writeJSON(rw, http.StatusOK, resp)
}

func (a *app) handleCross(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req protocol.CrossRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Identity) == "" || strings.TrimSpace(req.World) == "" {
		writeFail(rw, http.StatusBadRequest, protocol.ErrBadRequest)
		return
	}
	if negative(req.MinRadius) || negative(req.MaxRadius) {
		writeFail(rw, http.StatusBadRequest, protocol.ErrBadRequest)
		return
	}
	if req.TargetProcess == "" {
		req.TargetProcess = a.cfg.ProcessID
	}
	if !a.mover.Known(req.TargetProcess) {
		writeFail(rw, http.StatusNotFound, protocol.ErrUnknownPeer)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	var err error
	if len(req.Members) > 0 {
		err = a.coord.SendGroupRequest(ctx, req.Identity, req.Members, req.TargetProcess, req.World, req.MinRadius, req.MaxRadius)
	} else {
		err = a.coord.SendFindLocationRequest(ctx, req.Identity, req.TargetProcess, req.World, req.MinRadius, req.MaxRadius)
	}
	switch {
	case errors.Is(err, handoff.ErrInvalidRecord):
		writeFail(rw, http.StatusBadRequest, protocol.ErrBadRequest)
		return
	case errors.Is(err, handoff.ErrUnavailable):
		writeFail(rw, http.StatusServiceUnavailable, protocol.ErrHandoffUnavailable)
		return
	case errors.Is(err, errUnknownPeer):
		writeFail(rw, http.StatusNotFound, protocol.ErrUnknownPeer)
		return
	case err != nil:
		a.log.Printf("cross %s: %v", req.Identity, err)
		writeFail(rw, http.StatusBadGateway, protocol.ErrHandoffUnavailable)
		return
	}
	a.observer.Publish(protocol.Event{
		Type:     protocol.TypeHandoffSent,
		Identity: req.Identity,
		World:    req.World,
		Detail:   "to " + req.TargetProcess,
	})
	writeJSON(rw, http.StatusAccepted, protocol.OK())
}

func negative(r *int) bool { return r != nil && *r < 0 }

// handleJoin is what a peer calls after moving a session here. The search
// runs in the background.
func (a *app) handleJoin(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req protocol.SessionRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Identity) == "" {
		writeFail(rw, http.StatusBadRequest, protocol.ErrBadRequest)
		return
	}
	if req.From != "" && !a.mover.Known(req.From) {
		a.log.Printf("join %s from unlisted peer %s", req.Identity, req.From)
	}
	a.joinAsync(req.Identity)
	writeJSON(rw, http.StatusAccepted, protocol.OK())
}

func (a *app) handleLeave(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req protocol.SessionRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Identity) == "" {
		writeFail(rw, http.StatusBadRequest, protocol.ErrBadRequest)
		return
	}
	cancelled := a.sched.Cancel(req.Identity)
	a.coord.OnLeave(req.Identity)
	resp := protocol.OK()
	if cancelled {
		resp.Code = protocol.ErrCancelled
		resp.Message = protocol.Message(protocol.ErrCancelled)
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (a *app) handleAdminHandoff(rw http.ResponseWriter, r *http.Request) {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	if id := strings.TrimSpace(r.URL.Query().Get("identity")); id != "" {
		rec, err := a.store.Get(r.Context(), id)
		if errors.Is(err, handoff.ErrNotFound) {
			http.Error(rw, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(rw, http.StatusOK, rec)
		return
	}
	recs, err := a.store.List(r.Context())
	if err != nil {
		http.Error(rw, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"backend": a.backend, "records": recs})
}

func (a *app) handleAdminPrune(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	n, err := a.coord.Prune(r.Context())
	if err != nil {
		writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "pruned": n})
}
