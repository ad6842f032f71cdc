package swcache

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestShufflePermutation(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for n := 0; n < 50; n++ {
		in := make([]int, n)
		for i := range in {
			in[i] = i
		}
		out := slices.Clone(in)
		Shuffle(out, r.IntN)
		if len(out) != n {
			t.Fatalf("len changed: %d != %d", len(out), n)
		}
		sorted := slices.Clone(out)
		slices.Sort(sorted)
		if !slices.Equal(sorted, in) {
			t.Fatalf("n=%d: not a permutation: %v", n, out)
		}
	}
}

func TestShuffleWalksDownFromLastIndex(t *testing.T) {
	var calls []int
	s := []string{"a", "b", "c", "d"}
	Shuffle(s, func(n int) int { calls = append(calls, n); return 0 })

	if !slices.Equal(calls, []int{4, 3, 2}) {
		t.Fatalf("intn bounds = %v, want [4 3 2]", calls)
	}
	// i=3 swaps with 0, then i=2, then i=1.
	if !slices.Equal(s, []string{"b", "c", "d", "a"}) {
		t.Fatalf("result = %v", s)
	}
}

// TestShuffleNotIdentity: for 30 elements the identity permutation has
// probability 1/30!, so seeing it more than once in 20 runs means the
// shuffle is broken.
func TestShuffleNotIdentity(t *testing.T) {
	in := make([]int, 30)
	for i := range in {
		in[i] = i
	}
	identity := 0
	for range 20 {
		out := slices.Clone(in)
		Shuffle(out, rand.IntN)
		if slices.Equal(out, in) {
			identity++
		}
	}
	if identity > 1 {
		t.Fatalf("shuffle returned the input order %d/20 times", identity)
	}
}

func TestShuffleFieldPreservesDocument(t *testing.T) {
	body := []byte(`{"posts":[{"id":1},{"id":2},{"id":3}],"total":3,"skip":0,"limit":30}`)
	r := rand.New(rand.NewPCG(7, 7))

	out, ok, err := shuffleField(body, "posts", r.IntN)
	if err != nil || !ok {
		t.Fatalf("shuffleField: ok=%v err=%v", ok, err)
	}
	if !gjson.ValidBytes(out) {
		t.Fatalf("output is not JSON: %s", out)
	}
	var ids []int64
	for _, v := range gjson.GetBytes(out, "posts.#.id").Array() {
		ids = append(ids, v.Int())
	}
	slices.Sort(ids)
	if !slices.Equal(ids, []int64{1, 2, 3}) {
		t.Fatalf("ids = %v", ids)
	}
	s := string(out)
	if !strings.HasSuffix(s, `,"total":3,"skip":0,"limit":30}`) || !strings.HasPrefix(s, `{"posts":[`) {
		t.Fatalf("document order changed: %s", s)
	}
}

func TestShuffleFieldMissingOrNotArray(t *testing.T) {
	for _, body := range []string{`{"items":[1,2]}`, `{"posts":"none"}`, `[1,2,3]`} {
		out, ok, err := shuffleField([]byte(body), "posts", rand.IntN)
		if err != nil || ok || string(out) != body {
			t.Fatalf("%s: out=%s ok=%v err=%v", body, out, ok, err)
		}
	}
}

func TestShuffleFieldNestedPath(t *testing.T) {
	body := []byte(`{"data":{"posts":[1,2,3,4]},"v":1}`)
	out, ok, err := shuffleField(body, "data.posts", func(int) int { return 0 })
	if err != nil || !ok {
		t.Fatalf("shuffleField: ok=%v err=%v", ok, err)
	}
	if got := gjson.GetBytes(out, "data.posts").Raw; got != "[2,3,4,1]" {
		t.Fatalf("data.posts = %s", got)
	}
}
