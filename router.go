package swcache

import (
	"net/http"
	"strings"
)

// Strategy names how a request is answered.
type Strategy uint8

const (
	StrategyCacheFirst Strategy = iota
	StrategyNetworkFirst
)

func (s Strategy) String() string {
	switch s {
	case StrategyNetworkFirst:
		return "network-first"
	case StrategyCacheFirst:
		return "cache-first"
	default:
		return "unknown"
	}
}

// Router classifies requests. It holds no state and does no I/O.
type Router struct {
	apiPattern string
}

func NewRouter(apiPattern string) Router {
	return Router{apiPattern: apiPattern}
}

// Route returns StrategyNetworkFirst when the request URL contains the API
// pattern and StrategyCacheFirst otherwise.
func (r Router) Route(req *http.Request) Strategy {
	if r.apiPattern != "" && req.URL != nil && strings.Contains(req.URL.String(), r.apiPattern) {
		return StrategyNetworkFirst
	}
	return StrategyCacheFirst
}
