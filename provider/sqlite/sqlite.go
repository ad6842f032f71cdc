// Package sqlite is a file-backed provider on modernc.org/sqlite (pure Go).
// It gives a single client a persistent cache without an external server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	pr "github.com/unkn0wn-root/swcache/provider"
)

const schema = `CREATE TABLE IF NOT EXISTS swcache_kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
)`

type Provider struct {
	db  *sql.DB
	now func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string) (*Provider, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite provider: path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Provider{db: db, now: time.Now}, nil
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value     []byte
		expiresAt int64
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM swcache_kv WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expiresAt > 0 && p.now().UnixMilli() >= expiresAt {
		_ = p.Del(ctx, key)
		return nil, false, nil
	}
	return value, true, nil
}

func (p *Provider) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = p.now().Add(ttl).UnixMilli()
	}
	if value == nil {
		value = []byte{}
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO swcache_kv (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM swcache_kv WHERE key = ?`, key)
	return err
}

func (p *Provider) Close(_ context.Context) error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
