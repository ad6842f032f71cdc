package swcache

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Shuffle permutes s in place with Fisher–Yates. intn(n) must return a
// uniformly distributed int in [0, n); every permutation is then equally likely.
func Shuffle[T any](s []T, intn func(n int) int) {
	for i := len(s) - 1; i > 0; i-- {
		j := intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// shuffleField shuffles the array found at path (gjson syntax) inside a JSON
// document. The rest of the document is left byte-for-byte as it was.
// Reports false when path is missing or not an array.
func shuffleField(body []byte, path string, intn func(n int) int) ([]byte, bool, error) {
	res := gjson.GetBytes(body, path)
	if !res.IsArray() {
		return body, false, nil
	}
	elems := res.Array()
	raws := make([]string, len(elems))
	for i, e := range elems {
		raws[i] = e.Raw
	}
	Shuffle(raws, intn)

	out, err := sjson.SetRawBytes(body, path, []byte("["+strings.Join(raws, ",")+"]"))
	if err != nil {
		return body, false, err
	}
	return out, true, nil
}
