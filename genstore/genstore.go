// Package genstore keeps one generation counter per cache namespace.
//
// An entry is written together with the generation its namespace had at write
// time. Deleting a namespace bumps the counter, which turns every entry written
// before the delete into a miss even if the provider still holds the bytes.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live.
// Use LocalGenStore (default) for in-process gens, or RedisGenStore when the
// provider outlives the process.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, namespace string) (uint64, error)
	// SnapshotMany returns gens for many namespaces; missing => 0.
	SnapshotMany(ctx context.Context, namespaces []string) (map[string]uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, namespace string) (uint64, error)
	// Cleanup prunes old metadata if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
