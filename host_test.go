package swcache

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
)

func TestHostPassthroughWithoutWorker(t *testing.T) {
	tr := httpmock.NewMockTransport()
	tr.RegisterResponder(http.MethodGet, testOrigin+"/", httpmock.NewStringResponder(200, "live"))
	h := NewHost(HostOptions{Passthrough: tr})

	if h.Active() != nil {
		t.Fatalf("no worker expected")
	}
	client := &http.Client{Transport: h}
	resp, err := client.Get(testOrigin + "/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if body := readBody(t, resp); string(body) != "live" {
		t.Fatalf("body = %q", body)
	}
	if h.Unregister() {
		t.Fatalf("Unregister without worker must report false")
	}
}

func TestHostRegisterAndTakeover(t *testing.T) {
	ctx := context.Background()
	tr := httpmock.NewMockTransport()
	registerAssets(tr)
	s := newTestStorage(t, newMemProvider(), nil)
	h := NewHost(HostOptions{Passthrough: tr})
	client := &http.Client{Transport: h}

	v1 := newTestWorker(t, s, tr, nil)
	if _, err := h.Register(ctx, v1); err != nil {
		t.Fatalf("Register v1: %v", err)
	}
	if h.Active() != v1 || v1.State() != StateActive {
		t.Fatalf("v1 not active: %s", v1.State())
	}
	calls := tr.GetTotalCallCount()
	resp, err := client.Get(testOrigin + "/index.html")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	readBody(t, resp)
	if tr.GetTotalCallCount() != calls {
		t.Fatalf("pre-cached asset went to the network")
	}

	// A failing install keeps v1 in charge.
	broken := httpmock.NewMockTransport()
	broken.RegisterNoResponder(httpmock.NewStringResponder(500, "down"))
	bad := newTestWorker(t, s, broken, func(o *Options) { o.ShellNamespace = "shell-v2" })
	if _, err := h.Register(ctx, bad); err == nil {
		t.Fatalf("expected install error")
	}
	if h.Active() != v1 || v1.State() != StateActive || bad.State() != StateRedundant {
		t.Fatalf("failed register must keep v1: v1=%s bad=%s", v1.State(), bad.State())
	}

	v2 := newTestWorker(t, s, tr, func(o *Options) {
		o.ShellNamespace = "shell-v2"
		o.DataNamespace = "data-v2"
	})
	report, err := h.Register(ctx, v2)
	if err != nil {
		t.Fatalf("Register v2: %v", err)
	}
	if len(report.Deleted) != 1 || report.Deleted[0] != "shell-v1" {
		t.Fatalf("report = %+v", report)
	}
	if h.Active() != v2 || v1.State() != StateSuperseded {
		t.Fatalf("takeover failed: v1=%s v2=%s", v1.State(), v2.State())
	}
	if _, err := v1.Handle(ctx, get(t, testOrigin+"/")); !errors.Is(err, ErrNotActive) {
		t.Fatalf("superseded worker must refuse requests: %v", err)
	}

	if !h.Unregister() || v2.State() != StateSuperseded || h.Active() != nil {
		t.Fatalf("Unregister failed: v2=%s", v2.State())
	}
}

// racingWorker runs before ahead of the wrapped worker's Handle.
type racingWorker struct {
	Worker
	before func()
}

func (r *racingWorker) Handle(ctx context.Context, req *http.Request) (*http.Response, error) {
	if r.before != nil {
		f := r.before
		r.before = nil
		f()
	}
	return r.Worker.Handle(ctx, req)
}

func TestHostRetriesRequestCaughtByTakeover(t *testing.T) {
	ctx := context.Background()
	tr := httpmock.NewMockTransport()
	registerAssets(tr)
	s := newTestStorage(t, newMemProvider(), nil)
	h := NewHost(HostOptions{Passthrough: tr})
	client := &http.Client{Transport: h}

	v1 := &racingWorker{Worker: newTestWorker(t, s, tr, nil)}
	if _, err := h.Register(ctx, v1); err != nil {
		t.Fatalf("Register v1: %v", err)
	}
	v2 := newTestWorker(t, s, tr, func(o *Options) {
		o.ShellNamespace = "shell-v2"
		o.DataNamespace = "data-v2"
	})
	// the request has already picked v1 when v2 takes over
	v1.before = func() {
		if _, err := h.Register(ctx, v2); err != nil {
			t.Errorf("Register v2: %v", err)
		}
	}

	resp, err := client.Get(testOrigin + "/index.html")
	if err != nil {
		t.Fatalf("request during takeover: %v", err)
	}
	if body := readBody(t, resp); string(body) != "asset /index.html" {
		t.Fatalf("body = %q", body)
	}
	if h.Active() != v2 || v1.State() != StateSuperseded {
		t.Fatalf("takeover failed: v1=%s v2=%s", v1.State(), v2.State())
	}
}
