package swcache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	c "github.com/unkn0wn-root/swcache/codec"
	gen "github.com/unkn0wn-root/swcache/genstore"
	"github.com/unkn0wn-root/swcache/internal/util"
	"github.com/unkn0wn-root/swcache/internal/wire"
	pr "github.com/unkn0wn-root/swcache/provider"
)

type SetCostFunc func(storageKey string, raw []byte) int64

// StorageOptions configure the namespace store shared by every worker version
// of one client. Only Provider is required.
type StorageOptions struct {
	Provider pr.Provider
	Codec    c.Codec[Snapshot] // nil => msgpack
	GenStore gen.GenStore      // nil => LocalGenStore (in-process)

	KeyPrefix      string // "" => "swcache"
	MaxEntryBytes  int    // decode limit per snapshot; 0 => unlimited
	ComputeSetCost SetCostFunc
	Logger         Logger // if nil, NopLogger is used
	Hooks          Hooks  // if nil, NopHooks is used
}

// Storage owns the named namespaces of one client installation: the registry
// of names, creation and deletion. Workers of successive versions share one
// Storage so the newer one can see and delete what the older one created.
type Storage struct {
	provider pr.Provider
	codec    c.Codec[Snapshot]
	gen      gen.GenStore
	prefix   string
	cost     SetCostFunc
	log      Logger
	hooks    Hooks

	// serialises read-modify-write of the registry and key indexes
	mu sync.Mutex
}

func NewStorage(opts StorageOptions) (*Storage, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("swcache: provider is required")
	}

	s := &Storage{
		provider: opts.Provider,
		prefix:   coalesce(opts.KeyPrefix, DefaultKeyPrefix),
		log:      coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:    coalesce[Hooks](opts.Hooks, NopHooks{}),
	}

	var codec c.Codec[Snapshot] = c.Msgpack[Snapshot]{}
	if opts.Codec != nil {
		codec = opts.Codec
	}
	s.codec = c.WithLimit(codec, opts.MaxEntryBytes)

	if opts.ComputeSetCost != nil {
		s.cost = opts.ComputeSetCost
	} else {
		s.cost = func(string, []byte) int64 { return 1 }
	}

	if opts.GenStore != nil {
		s.gen = opts.GenStore
	} else {
		s.gen = gen.NewLocalGenStore(0, 0)
	}
	return s, nil
}

// Close releases the gen store (best effort) and the provider.
func (s *Storage) Close(ctx context.Context) error {
	if s.gen != nil {
		_ = s.gen.Close(ctx)
	}
	if s.provider != nil {
		return s.provider.Close(ctx)
	}
	return nil
}

// Namespace returns a handle without touching the store. The namespace is
// registered by Open or by its first Put.
func (s *Storage) Namespace(name string) *Namespace {
	return &Namespace{name: name, s: s}
}

// Open registers name (if new) and returns its handle.
func (s *Storage) Open(ctx context.Context, name string) (*Namespace, error) {
	if name == "" {
		return nil, fmt.Errorf("swcache: namespace name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.addToIndexLocked(ctx, s.registryKey(), name); err != nil {
		return nil, fmt.Errorf("register namespace %q: %w", name, err)
	}
	return s.Namespace(name), nil
}

// Names lists every registered namespace in creation order.
func (s *Storage) Names(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readIndexLocked(ctx, s.registryKey())
}

// Generations returns the current generation of every registered namespace.
func (s *Storage) Generations(ctx context.Context) (map[string]uint64, error) {
	names, err := s.Names(ctx)
	if err != nil {
		return nil, err
	}
	gens, err := s.gen.SnapshotMany(ctx, names)
	if err != nil {
		s.hooks.GenSnapshotError("", err)
		return nil, fmt.Errorf("read generations: %w", err)
	}
	return gens, nil
}

// Has reports whether name is registered.
func (s *Storage) Has(ctx context.Context, name string) (bool, error) {
	names, err := s.Names(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

// Delete removes a namespace. The generation is bumped first so every entry
// becomes invisible at once, then the indexed entries are deleted. The name
// stays registered unless everything succeeded, so a later call retries.
// Returns false when name was not registered.
func (s *Storage) Delete(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.readIndexLocked(ctx, s.registryKey())
	if err != nil {
		return false, &DeleteError{Namespace: name, DelErr: err}
	}
	if !slices.Contains(names, name) {
		return false, nil
	}

	newGen, bumpErr := s.gen.Bump(ctx, name)
	if bumpErr != nil {
		s.hooks.GenBumpError(name, bumpErr)
	}

	var delErrs []error
	keys, err := s.readIndexLocked(ctx, s.indexKey(name))
	if err != nil {
		delErrs = append(delErrs, err)
	}
	for _, k := range keys {
		if err := s.provider.Del(ctx, s.entryKey(name, k)); err != nil {
			delErrs = append(delErrs, err)
		}
	}
	if len(delErrs) == 0 {
		if err := s.provider.Del(ctx, s.indexKey(name)); err != nil {
			delErrs = append(delErrs, err)
		}
	}
	delErr := errors.Join(delErrs...)

	if bumpErr != nil || delErr != nil {
		if bumpErr != nil && delErr != nil {
			s.log.Error("namespace delete outage", Fields{"namespace": name, "bumpErr": bumpErr, "delErr": delErr})
		}
		return false, &DeleteError{Namespace: name, BumpErr: bumpErr, DelErr: delErr}
	}

	remaining := slices.DeleteFunc(names, func(n string) bool { return n == name })
	if err := s.writeIndexLocked(ctx, s.registryKey(), remaining); err != nil {
		return false, &DeleteError{Namespace: name, DelErr: err}
	}
	s.log.Debug("namespace deleted", Fields{"namespace": name, "entries": len(keys), "newGen": newGen})
	return true, nil
}

func (s *Storage) registryKey() string       { return s.prefix + ":registry" }
func (s *Storage) indexKey(ns string) string { return s.prefix + ":index:" + ns }
func (s *Storage) entryKey(ns, key string) string {
	return util.HashedKey(s.prefix+":entry:"+ns, key)
}

func (s *Storage) snapshotGen(ctx context.Context, ns string) (uint64, error) {
	g, err := s.gen.Snapshot(ctx, ns)
	if err != nil {
		s.hooks.GenSnapshotError(ns, err)
		return 0, err
	}
	return g, nil
}

// readIndexLocked returns the names stored under key. A corrupt record is
// dropped and read as empty.
func (s *Storage) readIndexLocked(ctx context.Context, key string) ([]string, error) {
	raw, ok, err := s.provider.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	names, err := wire.DecodeIndex(raw)
	if err != nil {
		s.log.Warn("dropping corrupt index", Fields{"key": key})
		s.hooks.SelfHeal("", key, "corrupt")
		_ = s.provider.Del(ctx, key)
		return nil, nil
	}
	return names, nil
}

func (s *Storage) writeIndexLocked(ctx context.Context, key string, names []string) error {
	if len(names) == 0 {
		return s.provider.Del(ctx, key)
	}
	raw, err := wire.EncodeIndex(names)
	if err != nil {
		return err
	}
	ok, err := s.provider.Set(ctx, key, raw, s.cost(key, raw), 0)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRejected
	}
	return nil
}

func (s *Storage) addToIndexLocked(ctx context.Context, key, name string) error {
	names, err := s.readIndexLocked(ctx, key)
	if err != nil {
		return err
	}
	if slices.Contains(names, name) {
		return nil
	}
	return s.writeIndexLocked(ctx, key, append(names, name))
}
