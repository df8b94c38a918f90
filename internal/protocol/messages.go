package protocol

import "voxelrtp.ai/internal/world"

// POST /v1/rtp
type RTPRequest struct {
	Identity  string `json:"identity"`
	World     string `json:"world"`
	MinRadius *int   `json:"min_radius,omitempty"`
	MaxRadius *int   `json:"max_radius,omitempty"`
	// Wait blocks the response until the teleport resolves.
	Wait bool `json:"wait,omitempty"`
}

// POST /v1/rtp/cross
type CrossRequest struct {
	Identity      string   `json:"identity"`
	TargetProcess string   `json:"target_process"`
	World         string   `json:"world"`
	MinRadius     *int     `json:"min_radius,omitempty"`
	MaxRadius     *int     `json:"max_radius,omitempty"`
	Members       []string `json:"members,omitempty"`
}

// POST /v1/sessions/join and /v1/sessions/leave
type SessionRequest struct {
	Identity string `json:"identity"`
	// From is the origin process id when a peer forwards a session.
	From string `json:"from,omitempty"`
}

type Response struct {
	OK       bool              `json:"ok"`
	Code     string            `json:"code,omitempty"`
	Message  string            `json:"message,omitempty"`
	State    string            `json:"state,omitempty"`
	Location *world.Coordinate `json:"location,omitempty"`
}

func OK() Response { return Response{OK: true} }

func Fail(code string) Response {
	return Response{OK: false, Code: code, Message: Message(code)}
}

// Event is one observer stream message.
type Event struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	Identity        string            `json:"identity"`
	World           string            `json:"world,omitempty"`
	Code            string            `json:"code,omitempty"`
	Location        *world.Coordinate `json:"location,omitempty"`
	Process         string            `json:"process,omitempty"`
	Detail          string            `json:"detail,omitempty"`
	TimeUnixMS      int64             `json:"time_unix_ms"`
}
