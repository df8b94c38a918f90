// Package observer streams teleport events to loopback websocket clients.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voxelrtp.ai/internal/protocol"
)

// SubscribeMsg narrows a stream to some worlds and event types. Empty lists
// mean everything.
type SubscribeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Worlds          []string `json:"worlds,omitempty"`
	Events          []string `json:"events,omitempty"`
}

type subscriber struct {
	id  string
	out chan []byte

	mu     sync.RWMutex
	worlds map[string]bool
	events map[string]bool
}

func (s *subscriber) set(sub SubscribeMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worlds = toSet(sub.Worlds)
	s.events = toSet(sub.Events)
}

func (s *subscriber) wants(ev protocol.Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.worlds) > 0 && !s.worlds[ev.World] {
		return false
	}
	if len(s.events) > 0 && !s.events[ev.Type] {
		return false
	}
	return true
}

func toSet(list []string) map[string]bool {
	if len(list) == 0 {
		return nil
	}
	m := make(map[string]bool, len(list))
	for _, v := range list {
		m[v] = true
	}
	return m
}

type Server struct {
	process string
	log     *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu   sync.RWMutex
	subs map[string]*subscriber

	published atomic.Int64
	dropped   atomic.Int64
}

func NewServer(process string, logger *log.Logger) *Server {
	return &Server{
		process: process,
		log:     logger,
		subs:    map[string]*subscriber{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Publish fans ev out to every matching subscriber. Slow subscribers lose
// events rather than blocking the caller.
func (s *Server) Publish(ev protocol.Event) {
	ev.ProtocolVersion = protocol.Version
	if ev.Process == "" {
		ev.Process = s.process
	}
	if ev.TimeUnixMS == 0 {
		ev.TimeUnixMS = time.Now().UnixMilli()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.published.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if !sub.wants(ev) {
			continue
		}
		select {
		case sub.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

// Notify publishes a failed teleport.
func (s *Server) Notify(identity, code string) {
	s.Publish(protocol.Event{
		Type:     protocol.TypeTeleportFailed,
		Identity: identity,
		Code:     code,
		Detail:   protocol.Message(code),
	})
}

func (s *Server) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Server) Counters() (published, dropped int64) {
	return s.published.Load(), s.dropped.Load()
}

func (s *Server) add(sub *subscriber) {
	s.mu.Lock()
	s.subs[sub.id] = sub
	s.mu.Unlock()
}

func (s *Server) remove(id string) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		client := &subscriber{id: sid, out: make(chan []byte, 256)}
		client.set(sub)
		s.add(client)
		defer s.remove(sid)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-client.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := parseSubscribe(msg); ok {
				client.set(sub)
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func parseSubscribe(b []byte) (SubscribeMsg, bool) {
	var sub SubscribeMsg
	if err := json.Unmarshal(b, &sub); err != nil {
		return sub, false
	}
	if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != protocol.Version {
		return sub, false
	}
	return sub, true
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
