package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashedKey returns prefix + ":" + hex(sha256(key)).
// Request URLs can be long and carry characters some stores dislike, so
// entries are addressed by digest. The raw key travels in the wire envelope.
func HashedKey(prefix, key string) string {
	sum := sha256.Sum256([]byte(key))
	return prefix + ":" + hex.EncodeToString(sum[:])
}
