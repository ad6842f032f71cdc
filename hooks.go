package swcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; wrap slow sinks with
// hooks/async.
type Hooks interface {
	// An entry was deleted by the cache on read.
	// reason ∈ {"corrupt", "stale_gen", "decode"}
	SelfHeal(namespace, storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(namespace, storageKey string)

	// GenStore errors.
	GenSnapshotError(namespace string, err error)
	GenBumpError(namespace string, err error)

	// A stale namespace could not be removed during activate. It stays in the
	// registry and is retried by the next activate.
	CleanupFailed(namespace string, err error)

	// Network-first could not reach the network. hit reports whether a
	// snapshot was served instead.
	Fallback(key string, hit bool)

	// Pre-caching failed; the worker is redundant.
	InstallFailed(url string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string, string)    {}
func (NopHooks) ProviderSetRejected(string, string) {}
func (NopHooks) GenSnapshotError(string, error)     {}
func (NopHooks) GenBumpError(string, error)         {}
func (NopHooks) CleanupFailed(string, error)        {}
func (NopHooks) Fallback(string, bool)              {}
func (NopHooks) InstallFailed(string, error)        {}
