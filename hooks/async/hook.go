// Package asynchook moves hook delivery off the request path.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	storage, _ := swcache.NewStorage(swcache.StorageOptions{
//	    Provider: provider,
//	    Hooks:    hooks,
//	})
//
// Events are dropped when the queue is full.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/swcache"
)

type Hooks struct {
	inner   swcache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards q against send-after-close
	closed  bool
	dropped atomic.Uint64
}

var _ swcache.Hooks = (*Hooks)(nil)

func New(inner swcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) SelfHeal(ns, k, r string) { h.try(func() { h.inner.SelfHeal(ns, k, r) }) }
func (h *Hooks) ProviderSetRejected(ns, k string) {
	h.try(func() { h.inner.ProviderSetRejected(ns, k) })
}
func (h *Hooks) GenSnapshotError(ns string, err error) {
	h.try(func() { h.inner.GenSnapshotError(ns, err) })
}
func (h *Hooks) GenBumpError(ns string, err error) { h.try(func() { h.inner.GenBumpError(ns, err) }) }
func (h *Hooks) CleanupFailed(ns string, err error) {
	h.try(func() { h.inner.CleanupFailed(ns, err) })
}
func (h *Hooks) Fallback(key string, hit bool)       { h.try(func() { h.inner.Fallback(key, hit) }) }
func (h *Hooks) InstallFailed(url string, err error) { h.try(func() { h.inner.InstallFailed(url, err) }) }
