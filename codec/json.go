package codec

import "encoding/json"

// JSON stores values as encoding/json documents. Byte slices are base64
// encoded, so it is the largest of the three on disk but easy to inspect.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
