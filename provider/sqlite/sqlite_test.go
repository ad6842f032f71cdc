package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestSQLiteProviderPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	p, err := Open(path)
	require.NoError(t, err)

	ok, err := p.Set(ctx, "k", []byte("snapshot-1"), 1, 0)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = p.Set(ctx, "k", []byte("snapshot-2"), 1, 0)
	require.NoError(t, err, "later write replaces the entry")
	require.NoError(t, p.Close(ctx))

	p, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(ctx) })

	got, ok, err := p.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("snapshot-2"), got)

	require.NoError(t, p.Del(ctx, "k"))
	_, ok, err = p.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteProviderExpiresWithTTL(t *testing.T) {
	ctx := context.Background()
	p, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(ctx) })

	now := time.Unix(1_700_000_000, 0)
	p.now = func() time.Time { return now }

	_, err = p.Set(ctx, "k", []byte("v"), 1, time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, ok, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
