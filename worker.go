package swcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

type worker struct {
	mu    sync.RWMutex
	state State

	storage *Storage
	shell   *Namespace
	data    *Namespace

	precache    []string // absolute URLs
	client      *http.Client
	concurrency int

	router Router
	nf     *networkFirst
	cf     *cacheFirst

	log   Logger
	hooks Hooks
}

func newWorker(opts Options) (*worker, error) {
	if opts.Storage == nil {
		return nil, fmt.Errorf("swcache: storage is required")
	}

	w := &worker{
		storage:     opts.Storage,
		shell:       opts.Storage.Namespace(coalesce(opts.ShellNamespace, DefaultShellNamespace)),
		data:        opts.Storage.Namespace(coalesce(opts.DataNamespace, DefaultDataNamespace)),
		concurrency: coalesce(opts.InstallConcurrency, defaultInstallConcurrency),
		router:      NewRouter(coalesce(opts.APIPattern, DefaultAPIPattern)),
		log:         coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:       coalesce[Hooks](opts.Hooks, NopHooks{}),
	}
	if w.shell.Name() == w.data.Name() {
		return nil, fmt.Errorf("swcache: shell and data namespaces must differ (both %q)", w.shell.Name())
	}

	w.client = opts.Client
	if w.client == nil {
		w.client = &http.Client{}
	}

	precache, err := resolvePrecache(opts.Origin, opts.Precache)
	if err != nil {
		return nil, err
	}
	w.precache = precache

	timeout := coalesce(opts.NetworkTimeout, defaultNetworkTimeout)
	intn := opts.Intn
	if intn == nil {
		intn = rand.IntN
	}
	w.nf = &networkFirst{
		client:    w.client,
		timeout:   timeout,
		dataKey:   coalesce(opts.DataKey, DefaultDataKey),
		listField: coalesce(opts.ListField, DefaultListField),
		header:    coalesce(opts.ProvenanceHeader, DefaultProvenanceHeader),
		intn:      intn,
		log:       w.log,
		hooks:     w.hooks,
	}
	w.cf = &cacheFirst{client: w.client, log: w.log}
	return w, nil
}

// resolvePrecache turns manifest paths into the absolute URLs requests will
// carry, which are also the shell namespace keys.
func resolvePrecache(origin string, paths []string) ([]string, error) {
	var base *url.URL
	if origin != "" {
		u, err := url.Parse(origin)
		if err != nil {
			return nil, fmt.Errorf("swcache: parse origin: %w", err)
		}
		base = u
	}
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("swcache: parse precache path %q: %w", p, err)
		}
		if !u.IsAbs() {
			if base == nil {
				return nil, fmt.Errorf("swcache: precache path %q is relative and no origin is set", p)
			}
			u = base.ResolveReference(u)
		}
		s := u.String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

func (w *worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *worker) Namespaces() (string, string) { return w.shell.Name(), w.data.Name() }

func (w *worker) transition(op string, from, to State) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != from {
		return &StateError{Op: op, State: w.state}
	}
	w.state = to
	return nil
}

func (w *worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *worker) Install(ctx context.Context) error {
	if err := w.transition("install", StateUninstalled, StateInstalling); err != nil {
		return err
	}
	w.log.Info("install started", Fields{"shell": w.shell.Name(), "files": len(w.precache)})

	if err := w.populateShell(ctx); err != nil {
		w.setState(StateRedundant)
		var failed string
		var ie *InstallError
		if errors.As(err, &ie) {
			failed = ie.URL
		}
		w.hooks.InstallFailed(failed, err)
		w.log.Error("install failed", Fields{"shell": w.shell.Name(), "err": err})
		return err
	}

	w.setState(StateInstalled)
	w.log.Info("install complete", Fields{"shell": w.shell.Name()})
	return nil
}

// populateShell fetches every pre-cache URL before writing any of them, so a
// fetch failure leaves the shell namespace as it was. A shell this install
// created is deleted again if writing it fails.
func (w *worker) populateShell(ctx context.Context) error {
	existed, err := w.storage.Has(ctx, w.shell.Name())
	if err != nil {
		return &InstallError{Err: err}
	}
	if _, err := w.storage.Open(ctx, w.shell.Name()); err != nil {
		return &InstallError{Err: err}
	}

	snaps := make([]Snapshot, len(w.precache))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i, u := range w.precache {
		g.Go(func() error {
			snap, err := w.fetchForCache(gctx, u)
			if err != nil {
				return err
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, u := range w.precache {
		if err := w.shell.Put(ctx, u, snaps[i]); err != nil {
			if !existed {
				if _, derr := w.storage.Delete(ctx, w.shell.Name()); derr != nil {
					w.log.Warn("partial shell not removed", Fields{"shell": w.shell.Name(), "err": derr})
				}
			}
			return &InstallError{URL: u, Err: err}
		}
	}
	return nil
}

func (w *worker) fetchForCache(ctx context.Context, u string) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Snapshot{}, &InstallError{URL: u, Err: err}
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return Snapshot{}, &InstallError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Snapshot{}, &InstallError{URL: u, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Snapshot{}, &InstallError{URL: u, Err: err}
	}
	return newSnapshot(resp, body), nil
}

// Activate deletes every namespace other than the current shell and data
// namespaces. Delete failures are reported but never block activation.
func (w *worker) Activate(ctx context.Context) (CleanupReport, error) {
	report := CleanupReport{Failed: map[string]error{}}
	if err := w.transition("activate", StateInstalled, StateActivating); err != nil {
		return report, err
	}

	names, err := w.storage.Names(ctx)
	if err != nil {
		w.log.Warn("cleanup skipped: cannot list namespaces", Fields{"err": err})
		w.hooks.CleanupFailed("", err)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, name := range names {
		if name == w.shell.Name() || name == w.data.Name() {
			continue
		}
		g.Go(func() error {
			_, err := w.storage.Delete(ctx, name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[name] = err
				w.hooks.CleanupFailed(name, err)
				w.log.Warn("stale namespace not removed", Fields{"namespace": name, "err": err})
				return nil
			}
			report.Deleted = append(report.Deleted, name)
			w.log.Info("removed stale namespace", Fields{"namespace": name})
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(report.Deleted)

	w.setState(StateActive)
	w.log.Info("worker active", Fields{"shell": w.shell.Name(), "data": w.data.Name(), "removed": len(report.Deleted)})
	return report, nil
}

func (w *worker) Supersede() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateActive {
		w.state = StateSuperseded
	}
}

func (w *worker) Handle(ctx context.Context, req *http.Request) (*http.Response, error) {
	if st := w.State(); st != StateActive {
		return nil, &StateError{Op: "handle", State: st}
	}
	switch w.router.Route(req) {
	case StrategyNetworkFirst:
		return w.nf.serve(ctx, req, w.data)
	default:
		return w.cf.serve(ctx, req, w.shell, w.data)
	}
}
