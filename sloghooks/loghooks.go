package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/swcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	FallbackEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	fallbackCtr atomic.Uint64
}

var _ swcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(ns, storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("swcache.self_heal",
		"ns", ns,
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(ns, storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("swcache.provider_set_rejected",
		"ns", ns,
		"key", h.redact(storageKey))
}

func (h *Hooks) GenSnapshotError(ns string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swcache.gen_snapshot_error",
		"ns", ns,
		"err", err)
}

func (h *Hooks) GenBumpError(ns string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swcache.gen_bump_error",
		"ns", ns,
		"err", err)
}

func (h *Hooks) CleanupFailed(ns string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("swcache.cleanup_failed",
		"ns", ns,
		"err", err)
}

func (h *Hooks) Fallback(key string, hit bool) {
	if h.l == nil || !sample(h.opts.FallbackEvery, &h.fallbackCtr) {
		return
	}
	h.l.Info("swcache.fallback",
		"key", key,
		"hit", hit)
}

// InstallFailed logs the URL as is; pre-cache URLs are public asset paths.
func (h *Hooks) InstallFailed(url string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("swcache.install_failed",
		"url", url,
		"err", err)
}
