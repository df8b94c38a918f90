package handoffdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"voxelrtp.ai/internal/handoff"
	"voxelrtp.ai/internal/world"
)

// Memory is a process-local store. Records are stored encoded so they go
// through the same schema checks as the shared backends.
type Memory struct {
	mu   sync.Mutex
	recs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{recs: map[string][]byte{}}
}

func (m *Memory) Put(ctx context.Context, r handoff.Record) error {
	b, err := encode(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.recs[r.RequesterID] = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (handoff.Record, error) {
	m.mu.Lock()
	b, ok := m.recs[id]
	m.mu.Unlock()
	if !ok {
		return handoff.Record{}, handoff.ErrNotFound
	}
	return decode(b)
}

func (m *Memory) Complete(ctx context.Context, id string, loc world.Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.recs[id]
	if !ok {
		return handoff.ErrNotFound
	}
	r, err := decode(b)
	if err != nil {
		return err
	}
	if err := complete(&r, loc); err != nil {
		return err
	}
	nb, err := encode(r)
	if err != nil {
		return err
	}
	m.recs[id] = nb
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.recs, id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, b := range m.recs {
		r, err := decode(b)
		if err != nil || r.CreatedAt.Before(cutoff) {
			delete(m.recs, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) List(ctx context.Context) ([]handoff.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]handoff.Record, 0, len(m.recs))
	for _, b := range m.recs {
		r, err := decode(b)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sortRecords(out)
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close() error { return nil }

func sortRecords(rs []handoff.Record) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].RequesterID < rs[j].RequesterID
	})
}
