package swcache

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
)

// HostOptions configure a Host.
type HostOptions struct {
	// Passthrough answers requests while no worker is active. nil => http.DefaultTransport.
	Passthrough http.RoundTripper
	Logger      Logger // if nil, NopLogger is used
}

// Host plays the client side of the lifecycle: it installs and activates
// workers, keeps exactly one active, and routes intercepted requests to it.
// Host is an http.RoundTripper, so an *http.Client can sit on top of it.
type Host struct {
	active      atomic.Pointer[slot]
	passthrough http.RoundTripper
	log         Logger

	// serialises Register/Unregister
	mu sync.Mutex
}

type slot struct{ w Worker }

var _ http.RoundTripper = (*Host)(nil)

func NewHost(opts HostOptions) *Host {
	h := &Host{
		passthrough: opts.Passthrough,
		log:         coalesce[Logger](opts.Logger, NopLogger{}),
	}
	if h.passthrough == nil {
		h.passthrough = http.DefaultTransport
	}
	return h
}

// Register installs and activates w, then makes it the active worker. If
// install fails the previous worker keeps serving and the error is returned.
func (h *Host) Register(ctx context.Context, w Worker) (CleanupReport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := w.Install(ctx); err != nil {
		h.log.Warn("new worker failed to install, keeping current", Fields{"err": err})
		return CleanupReport{}, err
	}
	report, err := w.Activate(ctx)
	if err != nil {
		return report, err
	}

	prev := h.active.Swap(&slot{w: w})
	if prev != nil {
		prev.w.Supersede()
	}
	shell, data := w.Namespaces()
	h.log.Info("worker registered", Fields{"shell": shell, "data": data, "removed": report.Deleted})
	return report, nil
}

// Unregister supersedes the active worker. Requests pass through afterwards.
// Reports whether a worker was active.
func (h *Host) Unregister() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.active.Swap(nil)
	if prev == nil {
		return false
	}
	prev.w.Supersede()
	return true
}

// Active returns the active worker or nil.
func (h *Host) Active() Worker {
	if s := h.active.Load(); s != nil {
		return s.w
	}
	return nil
}

// RoundTrip hands req to the active worker. A request that raced a takeover
// and reached the superseded worker is retried once against its successor.
func (h *Host) RoundTrip(req *http.Request) (*http.Response, error) {
	s := h.active.Load()
	if s == nil {
		return h.passthrough.RoundTrip(req)
	}
	resp, err := s.w.Handle(req.Context(), req)
	if err == nil || !errors.Is(err, ErrNotActive) {
		return resp, err
	}
	next := h.active.Load()
	switch {
	case next == s:
		return resp, err
	case next == nil:
		return h.passthrough.RoundTrip(req)
	default:
		return next.w.Handle(req.Context(), req)
	}
}
