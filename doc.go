// Package swcache is a client-side interception cache. A Worker sits between
// application code and the network, classifies every outbound request and
// answers it from versioned cache namespaces or the network:
//
//   - dynamic API requests (URL contains Options.APIPattern) are network-first:
//     a fresh 2xx JSON body has its list field shuffled, is tagged
//     "X-Source: network" and snapshotted under one logical key; when the
//     network fails the last snapshot is served tagged "X-Source: cache".
//   - everything else is cache-first against the pre-cached app shell, falling
//     through to the network untouched.
//
// Lifecycle:
//
//	Uninstalled -> Installing -> Installed -> Activating -> Active -> Superseded
//	                    \-> Redundant (pre-cache failed)
//
// Install pre-caches Options.Precache into the shell namespace as one unit.
// Activate deletes every namespace that is neither the current shell nor the
// current data namespace. Host drives both and swaps the serving worker.
//
// Components:
//   - Storage: namespace registry over a provider.Provider byte store.
//   - Codec[Snapshot]: (de)serializes stored responses.
//   - GenStore: one generation per namespace; deleting a namespace bumps it so
//     leftovers from a partial delete never resurface.
//
// Keys (prefix defaults to "swcache"):
//
//	<prefix>:registry             - names of all namespaces
//	<prefix>:index:<ns>           - keys written into <ns>
//	<prefix>:entry:<ns>:<sha256>  - one response snapshot
package swcache
