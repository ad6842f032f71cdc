package codec

import "fmt"

// LimitCodec wraps another codec and refuses to decode payloads larger than
// MaxDecode bytes. Encode is forwarded to Inner unchanged.
// If MaxDecode <= 0, size limiting is disabled.
//
// Persistent stores can outlive the process that wrote them; a limit keeps a
// bloated or foreign record from being materialised as a response.
type LimitCodec[V any] struct {
	Inner     Codec[V]
	MaxDecode int
}

// WithLimit wraps inner with a decode limit. max <= 0 returns inner as-is.
func WithLimit[V any](inner Codec[V], max int) Codec[V] {
	if max <= 0 {
		return inner
	}
	return LimitCodec[V]{Inner: inner, MaxDecode: max}
}

func (c LimitCodec[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }
func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
