package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"voxelrtp.ai/internal/protocol"
)

var errUnknownPeer = errors.New("unknown peer")

// peerMover transfers a session by announcing it to the target process's
// join endpoint. A transfer to ourselves is a local join.
type peerMover struct {
	self   string
	peers  map[string]string
	client *http.Client
	local  func(identity string)
}

func newPeerMover(self string, peers map[string]string, local func(identity string)) *peerMover {
	return &peerMover{
		self:   self,
		peers:  peers,
		client: &http.Client{Timeout: 5 * time.Second},
		local:  local,
	}
}

func (m *peerMover) Known(process string) bool {
	if process == m.self {
		return true
	}
	_, ok := m.peers[process]
	return ok
}

func (m *peerMover) Transfer(ctx context.Context, identity, target string) error {
	if target == m.self {
		m.local(identity)
		return nil
	}
	base, ok := m.peers[target]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownPeer, target)
	}
	body, _ := json.Marshal(protocol.SessionRequest{Identity: identity, From: m.self})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+"/v1/sessions/join", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("peer %s join: status %d", target, resp.StatusCode)
	}
	return nil
}
