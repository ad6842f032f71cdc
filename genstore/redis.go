package genstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGenStore keeps namespace generations next to a Redis provider so they
// survive restarts together with the entries they guard.
// Optionally, a TTL can be applied to generation keys to prevent unbounded growth.
// If a generation key expires, readers observe gen=0.
type RedisGenStore struct {
	rdb         redis.UniversalClient
	prefix      string        // key prefix; should match swcache Options.KeyPrefix
	ttl         time.Duration // optional TTL for generation keys; 0 disables expiry
	closeClient bool
}

var _ GenStore = (*RedisGenStore)(nil)

// NewRedisGenStore creates a Redis-backed generation store without TTL.
// The client is not closed by Close; the caller (usually the provider) owns it.
func NewRedisGenStore(client redis.UniversalClient, prefix string) *RedisGenStore {
	return &RedisGenStore{rdb: client, prefix: prefix}
}

// NewRedisGenStoreWithTTL creates a Redis-backed generation store with TTL.
// If ttl <= 0, keys do not expire.
func NewRedisGenStoreWithTTL(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisGenStore {
	return &RedisGenStore{rdb: client, prefix: prefix, ttl: ttl}
}

// OwnClient makes Close release the client as well.
func (s *RedisGenStore) OwnClient() *RedisGenStore {
	s.closeClient = true
	return s
}

func (s *RedisGenStore) key(ns string) string { return s.prefix + ":gen:" + ns }

// Snapshot returns the current generation.
// Missing keys are treated as generation 0.
func (s *RedisGenStore) Snapshot(ctx context.Context, namespace string) (uint64, error) {
	res, err := s.rdb.Get(ctx, s.key(namespace)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	u, err := strconv.ParseUint(res, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis gen parse: %w", err)
	}
	return u, nil
}

// SnapshotMany returns generations for multiple namespaces in one MGET.
// Missing keys map to 0.
func (s *RedisGenStore) SnapshotMany(ctx context.Context, namespaces []string) (map[string]uint64, error) {
	if len(namespaces) == 0 {
		return map[string]uint64{}, nil
	}
	keys := make([]string, len(namespaces))
	for i, ns := range namespaces {
		keys[i] = s.key(ns)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]uint64, len(namespaces))
	for i, v := range vals {
		if v == nil {
			out[namespaces[i]] = 0
			continue
		}
		var raw string
		switch vv := v.(type) {
		case string:
			raw = vv
		case []byte:
			raw = string(vv)
		default:
			raw = fmt.Sprint(vv)
		}
		u, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("redis gen parse at %s: %w", namespaces[i], err)
		}
		out[namespaces[i]] = u
	}
	return out, nil
}

// Bump atomically increments the generation and (optionally) refreshes TTL.
// When ttl > 0, INCR + EXPIRE are pipelined in a single round-trip and the
// INCR result is captured from the pipeline (no extra INCR).
func (s *RedisGenStore) Bump(ctx context.Context, namespace string) (uint64, error) {
	k := s.key(namespace)

	if s.ttl <= 0 {
		v, err := s.rdb.Incr(ctx, k).Result()
		if err != nil {
			return 0, err
		}
		return uint64(v), nil
	}

	var incr *redis.IntCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint64(incr.Val()), nil
}

// Cleanup is not applicable for RedisGenStore (Redis handles expiry if TTL is set).
func (s *RedisGenStore) Cleanup(time.Duration) {}

// Close closes the underlying Redis client when the store owns it.
func (s *RedisGenStore) Close(context.Context) error {
	if !s.closeClient {
		return nil
	}
	if err := s.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
