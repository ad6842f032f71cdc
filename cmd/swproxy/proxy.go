package main

import (
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/unkn0wn-root/swcache"
)

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

type proxy struct {
	rt     http.RoundTripper
	origin *url.URL
	log    swcache.Logger
}

// newProxyServer routes every request through rt. Absolute request URIs
// (forward-proxy style) are kept; relative ones are resolved against origin.
func newProxyServer(rt http.RoundTripper, origin *url.URL, log swcache.Logger) *echo.Echo {
	p := &proxy{rt: rt, origin: origin, log: log}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Any("/*", p.handle)
	return e
}

func (p *proxy) target(r *http.Request) *url.URL {
	if r.URL.IsAbs() {
		return r.URL
	}
	return p.origin.ResolveReference(&url.URL{Path: r.URL.Path, RawPath: r.URL.RawPath, RawQuery: r.URL.RawQuery})
}

func (p *proxy) handle(c echo.Context) error {
	in := c.Request()
	target := p.target(in)

	out, err := http.NewRequestWithContext(in.Context(), in.Method, target.String(), in.Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out.Header = in.Header.Clone()
	out.ContentLength = in.ContentLength
	removeHopHeaders(out.Header)

	resp, err := p.rt.RoundTrip(out)
	if err != nil {
		p.log.Warn("proxy request failed", swcache.Fields{"url": target.String(), "err": err})
		switch {
		case errors.Is(err, swcache.ErrNoSnapshot):
			return echo.NewHTTPError(http.StatusGatewayTimeout, "origin unreachable and nothing cached")
		case errors.Is(err, swcache.ErrNotActive):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "worker is being replaced")
		default:
			return echo.NewHTTPError(http.StatusBadGateway, "origin unreachable")
		}
	}
	defer resp.Body.Close()

	h := c.Response().Header()
	for k, vv := range resp.Header {
		for _, v := range vv {
			h.Add(k, v)
		}
	}
	removeHopHeaders(h)
	c.Response().WriteHeader(resp.StatusCode)
	if in.Method == http.MethodHead {
		return nil
	}
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		p.log.Debug("proxy copy aborted", swcache.Fields{"url": target.String(), "err": err})
	}
	return nil
}

func removeHopHeaders(h http.Header) {
	for _, k := range hopHeaders {
		h.Del(k)
	}
}
