// Package memory is an in-process provider backed by patrickmn/go-cache.
// Nothing survives a restart; use it for tests and ephemeral clients.
package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	pr "github.com/unkn0wn-root/swcache/provider"
)

type Memory struct {
	c *gocache.Cache
}

var _ pr.Provider = (*Memory)(nil)

type Config struct {
	// CleanupInterval purges expired items. 0 disables the janitor goroutine.
	CleanupInterval time.Duration
}

func New(cfg Config) *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, cfg.CleanupInterval)}
}

func (p *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		p.c.Delete(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (p *Memory) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	p.c.Set(key, value, ttl)
	return true, nil
}

func (p *Memory) Del(_ context.Context, key string) error {
	p.c.Delete(key)
	return nil
}

func (p *Memory) Close(_ context.Context) error {
	p.c.Flush()
	return nil
}

// Len reports the number of stored items, expired-but-unpurged included.
func (p *Memory) Len() int { return p.c.ItemCount() }
