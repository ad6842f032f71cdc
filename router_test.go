package swcache

import (
	"net/http"
	"testing"
)

func TestRouterRoute(t *testing.T) {
	r := NewRouter(DefaultAPIPattern)
	cases := []struct {
		method string
		url    string
		want   Strategy
	}{
		{http.MethodGet, "https://dummyjson.com/posts", StrategyNetworkFirst},
		{http.MethodGet, "https://dummyjson.com/posts?limit=10&skip=20", StrategyNetworkFirst},
		{http.MethodGet, "https://dummyjson.com/posts/1", StrategyNetworkFirst},
		{http.MethodPost, "https://dummyjson.com/posts/add", StrategyNetworkFirst},
		{http.MethodGet, "https://dummyjson.com/users", StrategyCacheFirst},
		{http.MethodGet, "https://app.example/", StrategyCacheFirst},
		{http.MethodGet, "https://app.example/static/js/main.abc123.js", StrategyCacheFirst},
	}
	for _, tc := range cases {
		req, err := http.NewRequest(tc.method, tc.url, nil)
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		if got := r.Route(req); got != tc.want {
			t.Fatalf("%s %s: got %s want %s", tc.method, tc.url, got, tc.want)
		}
	}
}

func TestRouterEmptyPattern(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://dummyjson.com/posts", nil)
	if got := NewRouter("").Route(req); got != StrategyCacheFirst {
		t.Fatalf("empty pattern must never select network-first, got %s", got)
	}
}

func TestStrategyString(t *testing.T) {
	if StrategyNetworkFirst.String() != "network-first" || StrategyCacheFirst.String() != "cache-first" {
		t.Fatalf("unexpected names")
	}
	if Strategy(9).String() != "unknown" {
		t.Fatalf("unknown strategy name")
	}
}
