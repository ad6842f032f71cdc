package codec

import "fmt"

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Named resolves a codec by its configuration name: "json", "cbor" or "msgpack".
// An empty name selects msgpack.
func Named[V any](name string) (Codec[V], error) {
	switch name {
	case "", "msgpack":
		return Msgpack[V]{}, nil
	case "json":
		return JSON[V]{}, nil
	case "cbor":
		return NewCBOR[V](false)
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}
