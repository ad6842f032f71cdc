package swcache

import (
	"context"

	"github.com/unkn0wn-root/swcache/internal/wire"
)

// Namespace is a handle to one named store of response snapshots. Handles are
// cheap; strategies receive them explicitly and may only read and write
// entries. Creating and deleting namespaces is left to Storage.
type Namespace struct {
	name string
	s    *Storage
}

func (n *Namespace) Name() string { return n.name }

// Match returns the snapshot stored under key. Entries written before the
// namespace was last deleted, corrupt records and undecodable payloads are
// removed and reported as misses.
func (n *Namespace) Match(ctx context.Context, key string) (Snapshot, bool, error) {
	var zero Snapshot
	s := n.s
	k := s.entryKey(n.name, key)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}
	gen, storedKey, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		_ = s.provider.Del(ctx, k) // self-heal corrupt
		s.hooks.SelfHeal(n.name, k, "corrupt")
		return zero, false, nil
	}
	if storedKey != key {
		// digest collision; leave the other key's entry alone
		return zero, false, nil
	}
	cur, err := s.snapshotGen(ctx, n.name)
	if err != nil {
		return zero, false, err
	}
	if gen != cur {
		_ = s.provider.Del(ctx, k)
		s.hooks.SelfHeal(n.name, k, "stale_gen")
		return zero, false, nil
	}
	snap, err := s.codec.Decode(payload)
	if err != nil {
		_ = s.provider.Del(ctx, k)
		s.hooks.SelfHeal(n.name, k, "decode")
		return zero, false, nil
	}
	return snap, true, nil
}

// Put stores snap under key, fully replacing any previous entry. Concurrent
// Puts of one key race; the last completed write wins.
func (n *Namespace) Put(ctx context.Context, key string, snap Snapshot) error {
	s := n.s
	obs, err := s.snapshotGen(ctx, n.name)
	if err != nil {
		return err
	}
	payload, err := s.codec.Encode(snap)
	if err != nil {
		return err
	}
	wireb, err := wire.EncodeEntry(obs, key, payload)
	if err != nil {
		return err
	}
	k := s.entryKey(n.name, key)
	ok, err := s.provider.Set(ctx, k, wireb, s.cost(k, wireb), 0)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debug("Put rejected by provider (pressure)", Fields{"namespace": n.name, "key": key})
		s.hooks.ProviderSetRejected(n.name, k)
		return ErrRejected
	}

	// A write from a worker still serving a namespace that a newer worker just
	// deleted registers it again; the next activation deletes it.
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.addToIndexLocked(ctx, s.registryKey(), n.name); err != nil {
		return err
	}
	return s.addToIndexLocked(ctx, s.indexKey(n.name), key)
}
