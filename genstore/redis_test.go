package genstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisGenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisGenStoreWithTTL(rdb, "swcache", ttl).OwnClient()
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, mr
}

func TestRedisBumpAndSnapshot(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 0)

	g, err := s.Snapshot(ctx, "shell-v1")
	require.NoError(t, err)
	assert.Zero(t, g)

	g, err = s.Bump(ctx, "shell-v1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), g)
	assert.True(t, mr.Exists("swcache:gen:shell-v1"))

	got, err := s.SnapshotMany(ctx, []string{"shell-v1", "data-v1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"shell-v1": 1, "data-v1": 0}, got)
}

func TestRedisBumpRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Hour)

	_, err := s.Bump(ctx, "data-v1")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("swcache:gen:data-v1"))
}

func TestRedisSnapshotRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 0)
	require.NoError(t, mr.Set("swcache:gen:shell-v1", "not-a-number"))

	_, err := s.Snapshot(ctx, "shell-v1")
	assert.Error(t, err)
	_, err = s.SnapshotMany(ctx, []string{"shell-v1"})
	assert.Error(t, err)
}
