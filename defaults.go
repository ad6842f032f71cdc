package swcache

import "time"

const (
	DefaultShellNamespace   = "shell-v1"
	DefaultDataNamespace    = "data-v1"
	DefaultAPIPattern       = "dummyjson.com/posts"
	DefaultDataKey          = "latest-posts"
	DefaultListField        = "posts"
	DefaultProvenanceHeader = "X-Source"
	DefaultKeyPrefix        = "swcache"

	defaultNetworkTimeout     = 10 * time.Second
	defaultInstallConcurrency = 6
)

// Provenance values carried in the provenance header.
const (
	SourceNetwork = "network"
	SourceCache   = "cache"
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
