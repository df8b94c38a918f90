package observer

import (
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelrtp.ai/internal/protocol"
)

func dial(t *testing.T, srv *httptest.Server, sub SubscribeMsg) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	b, _ := json.Marshal(sub)
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return conn
}

func waitSubscribers(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Subscribers() < n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers=%d want %d", s.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) protocol.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev protocol.Event
	if err := json.Unmarshal(b, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ev
}

func TestServer_FanOutWithFilters(t *testing.T) {
	s := NewServer("rtp-1", log.New(io.Discard, "", 0))
	srv := httptest.NewServer(s.WSHandler())
	defer srv.Close()

	all := dial(t, srv, SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: protocol.Version})
	nether := dial(t, srv, SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: protocol.Version, Worlds: []string{"world_nether"}})
	waitSubscribers(t, s, 2)

	s.Publish(protocol.Event{Type: protocol.TypeTeleported, Identity: "p1", World: "world"})
	s.Publish(protocol.Event{Type: protocol.TypeTeleported, Identity: "p2", World: "world_nether"})

	if ev := readEvent(t, all); ev.Identity != "p1" || ev.Process != "rtp-1" || ev.ProtocolVersion != protocol.Version {
		t.Fatalf("ev=%+v", ev)
	}
	if ev := readEvent(t, all); ev.Identity != "p2" {
		t.Fatalf("ev=%+v", ev)
	}
	if ev := readEvent(t, nether); ev.Identity != "p2" {
		t.Fatalf("filtered stream got %+v", ev)
	}
}

func TestServer_NotifyPublishesFailure(t *testing.T) {
	s := NewServer("rtp-1", log.New(io.Discard, "", 0))
	srv := httptest.NewServer(s.WSHandler())
	defer srv.Close()
	conn := dial(t, srv, SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: protocol.Version})
	waitSubscribers(t, s, 1)

	s.Notify("p1", protocol.ErrNoLocation)
	ev := readEvent(t, conn)
	if ev.Type != protocol.TypeTeleportFailed || ev.Code != protocol.ErrNoLocation || ev.Detail != "no location found" {
		t.Fatalf("ev=%+v", ev)
	}
}

func TestServer_RejectsBadHandshake(t *testing.T) {
	s := NewServer("rtp-1", log.New(io.Discard, "", 0))
	srv := httptest.NewServer(s.WSHandler())
	defer srv.Close()
	conn := dial(t, srv, SubscribeMsg{Type: "HELLO"})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected close")
	}
	if s.Subscribers() != 0 {
		t.Fatalf("subscribers=%d", s.Subscribers())
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.4:1234":  false,
		"garbage":        false,
	} {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("%s: got %v", addr, got)
		}
	}
}
