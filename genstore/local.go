package genstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type localGenEntry struct {
	gen      uint64
	lastUsed atomic.Int64 // unix nanos of the last Bump or read
}

// LocalGenStore keeps generations in-process (default).
// Optional cleanup loop prunes counters nobody has bumped or read for the
// retention period. A counter read by a live namespace is never pruned.
type LocalGenStore struct {
	mu     sync.RWMutex
	gens   map[string]*localGenEntry
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once
	retention time.Duration
}

var _ GenStore = (*LocalGenStore)(nil)

func NewLocalGenStore(cleanupInterval, retention time.Duration) *LocalGenStore {
	s := &LocalGenStore{
		gens:      make(map[string]*localGenEntry),
		retention: retention,
	}
	if cleanupInterval > 0 && retention > 0 {
		s.ticker = time.NewTicker(cleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Cleanup(retention)
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *LocalGenStore) Snapshot(_ context.Context, ns string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.gens[ns]
	if !ok {
		return 0, nil
	}
	e.lastUsed.Store(time.Now().UnixNano())
	return e.gen, nil
}

// SnapshotMany acquires the read lock once and reads all requested keys.
// It does not count as use for cleanup.
func (s *LocalGenStore) SnapshotMany(_ context.Context, names []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(names))
	s.mu.RLock()
	for _, ns := range names {
		if e, ok := s.gens[ns]; ok {
			out[ns] = e.gen
		} else {
			out[ns] = 0
		}
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *LocalGenStore) Bump(_ context.Context, ns string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.gens[ns]
	if !ok {
		e = &localGenEntry{}
		s.gens[ns] = e
	}
	e.gen++
	e.lastUsed.Store(time.Now().UnixNano())
	return e.gen, nil
}

func (s *LocalGenStore) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-retention).UnixNano()

	s.mu.Lock()
	for k, e := range s.gens {
		if e.lastUsed.Load() < cutoff {
			delete(s.gens, k)
		}
	}
	s.mu.Unlock()
}

// Close stops the cleanup loop. Safe to call more than once.
func (s *LocalGenStore) Close(_ context.Context) error {
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			if s.ticker != nil {
				s.ticker.Stop() // stop ticker before waiting
			}
			s.wg.Wait()
		}
	})
	return nil
}
