package swcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("swcache: response body is not valid JSON")

// networkFirst serves the dynamic API: always ask the origin, snapshot what
// comes back, and fall back to the last snapshot when the origin is unreachable.
type networkFirst struct {
	client    *http.Client
	timeout   time.Duration // <= 0 disables
	dataKey   string
	listField string
	header    string
	intn      func(int) int
	log       Logger
	hooks     Hooks
}

func (s *networkFirst) serve(ctx context.Context, req *http.Request, data *Namespace) (*http.Response, error) {
	resp, err := s.fetch(ctx, req)
	if err != nil {
		return s.fallback(ctx, req, data, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Debug("api returned non-2xx, passing through", Fields{"url": req.URL.String(), "status": resp.StatusCode})
		return resp, nil
	}

	snap, err := s.transform(resp)
	if err != nil {
		return s.fallback(ctx, req, data, err)
	}
	if err := data.Put(ctx, s.dataKey, snap); err != nil {
		s.log.Warn("api snapshot not stored", Fields{"namespace": data.Name(), "key": s.dataKey, "err": err})
	}
	return snap.Response(req), nil
}

// fetch goes to the origin, asking intermediaries not to answer from cache.
// The caller's Accept-Encoding is dropped so the body arrives decoded.
// The timeout also covers reading the body; it is released when the body is closed.
func (s *networkFirst) fetch(ctx context.Context, req *http.Request) (*http.Response, error) {
	cancel := context.CancelFunc(func() {})
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	out := req.Clone(ctx)
	out.RequestURI = ""
	out.Header.Set("Cache-Control", "no-store")
	out.Header.Set("Pragma", "no-cache")
	out.Header.Del("Accept-Encoding")

	s.log.Debug("api fetch", Fields{"url": out.URL.String()})
	resp, err := s.client.Do(out)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// transform reads a 2xx body, shuffles its list field and tags it as fresh.
func (s *networkFirst) transform(resp *http.Response) (Snapshot, error) {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read api body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return Snapshot{}, errInvalidJSON
	}

	body, shuffled, err := shuffleField(body, s.listField, s.intn)
	if err != nil {
		return Snapshot{}, fmt.Errorf("shuffle %q: %w", s.listField, err)
	}
	if !shuffled {
		s.log.Debug("api body has no list field, caching as-is", Fields{"field": s.listField})
	}

	snap := newSnapshot(resp, body)
	snap.Header.Del("Content-Length")
	snap.Header.Set("Content-Type", "application/json")
	snap.Header.Set(s.header, SourceNetwork)
	return snap, nil
}

func (s *networkFirst) fallback(ctx context.Context, req *http.Request, data *Namespace, cause error) (*http.Response, error) {
	s.log.Info("api fetch failed, trying snapshot", Fields{"url": req.URL.String(), "err": cause})

	snap, ok, err := data.Match(ctx, s.dataKey)
	if err != nil {
		s.log.Warn("snapshot lookup failed", Fields{"namespace": data.Name(), "key": s.dataKey, "err": err})
	}
	if !ok {
		s.hooks.Fallback(s.dataKey, false)
		return nil, fmt.Errorf("%w: %w", ErrNoSnapshot, cause)
	}

	snap = snap.Clone()
	snap.Header.Set(s.header, SourceCache)
	s.hooks.Fallback(s.dataKey, true)
	return snap.Response(req), nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
