package swcache

import (
	"context"
	"net/http"
)

// cacheFirst answers from pre-cached entries and otherwise forwards the
// request untouched. It never writes; population happens only on install.
type cacheFirst struct {
	client *http.Client
	log    Logger
}

func (s *cacheFirst) serve(ctx context.Context, req *http.Request, namespaces ...*Namespace) (*http.Response, error) {
	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		key := req.URL.String()
		for _, ns := range namespaces {
			snap, ok, err := ns.Match(ctx, key)
			if err != nil {
				s.log.Warn("cache lookup failed", Fields{"namespace": ns.Name(), "url": key, "err": err})
				continue
			}
			if ok {
				return snap.Response(req), nil
			}
		}
	}

	out := req.Clone(ctx)
	out.RequestURI = ""
	return s.client.Do(out)
}
