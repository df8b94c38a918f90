package handoffdb

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"voxelrtp.ai/internal/handoff"
	"voxelrtp.ai/internal/world"
)

const redisPrefix = "rtp:handoff:"

// completeScript swaps a PENDING record for its completed body, keeping the
// key's TTL. Returns 1 on success, 0 when missing, -1 when not pending.
var completeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then return 0 end
local r = cjson.decode(v)
if r.status ~= 'PENDING' then return -1 end
redis.call('SET', KEYS[1], ARGV[1], 'KEEPTTL')
return 1
`)

// Redis keeps one key per record with a native TTL, so abandoned records
// expire even when no process runs the pruner.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func OpenRedis(ctx context.Context, addr string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func redisKey(id string) string { return redisPrefix + id }

func (s *Redis) Put(ctx context.Context, r handoff.Record) error {
	b, err := encode(r)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(r.RequesterID), b, s.ttl).Err()
}

func (s *Redis) Get(ctx context.Context, id string) (handoff.Record, error) {
	b, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return handoff.Record{}, handoff.ErrNotFound
	}
	if err != nil {
		return handoff.Record{}, err
	}
	return decode(b)
}

func (s *Redis) Complete(ctx context.Context, id string, loc world.Coordinate) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := complete(&r, loc); err != nil {
		return err
	}
	b, err := encode(r)
	if err != nil {
		return err
	}
	n, err := completeScript.Run(ctx, s.client, []string{redisKey(id)}, string(b)).Int()
	if err != nil {
		return err
	}
	switch n {
	case 0:
		return handoff.ErrNotFound
	case -1:
		return handoff.ErrNotPending
	}
	return nil
}

func (s *Redis) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, redisKey(id)).Err()
}

func (s *Redis) scan(ctx context.Context, fn func(key string, b []byte) error) error {
	iter := s.client.Scan(ctx, 0, redisPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		b, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return err
		}
		if err := fn(key, b); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (s *Redis) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	n := 0
	err := s.scan(ctx, func(key string, b []byte) error {
		var r handoff.Record
		if err := json.Unmarshal(b, &r); err == nil && !r.CreatedAt.Before(cutoff) {
			return nil
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

func (s *Redis) List(ctx context.Context) ([]handoff.Record, error) {
	var out []handoff.Record
	err := s.scan(ctx, func(_ string, b []byte) error {
		r, err := decode(b)
		if err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRecords(out)
	return out, nil
}

func (s *Redis) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *Redis) Close() error { return s.client.Close() }
