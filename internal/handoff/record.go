// Package handoff moves a teleport search to another process. The origin
// writes a PENDING record and transfers the session; the target completes
// the record when the session arrives and consumes it on join.
package handoff

import (
	"context"
	"errors"
	"time"

	"voxelrtp.ai/internal/world"
)

var (
	ErrNotFound    = errors.New("handoff record not found")
	ErrNotPending  = errors.New("handoff record is not pending")
	ErrUnavailable = errors.New("handoff store unavailable")
	// ErrInvalidRecord marks a record that failed schema validation. The
	// store itself is healthy.
	ErrInvalidRecord = errors.New("invalid handoff record")
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusComplete Status = "COMPLETE"
)

type Kind string

const (
	KindSingle Kind = "SINGLE"
	KindGroup  Kind = "GROUP"
)

// Record is the persisted cross-process request, keyed by RequesterID.
type Record struct {
	RequesterID string            `json:"requester_id"`
	Status      Status            `json:"status"`
	Kind        Kind              `json:"request_kind"`
	WorldName   string            `json:"world_name"`
	Location    *world.Coordinate `json:"location"`
	CreatedAt   time.Time         `json:"created_at"`

	MinRadius *int     `json:"min_radius,omitempty"`
	MaxRadius *int     `json:"max_radius,omitempty"`
	LeaderID  string   `json:"leader_id,omitempty"`
	Members   []string `json:"members,omitempty"`
	Origin    string   `json:"origin,omitempty"`
}

// Store is shared durable storage for records. Put overwrites; Complete only
// transitions a PENDING record; Delete of a missing record is not an error.
type Store interface {
	Put(ctx context.Context, r Record) error
	Get(ctx context.Context, requesterID string) (Record, error)
	Complete(ctx context.Context, requesterID string, loc world.Coordinate) error
	Delete(ctx context.Context, requesterID string) error
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
	List(ctx context.Context) ([]Record, error)
	Ping(ctx context.Context) error
	Close() error
}

// SessionMover asks the platform to move a session to another process.
type SessionMover interface {
	Transfer(ctx context.Context, identity, targetProcess string) error
}
