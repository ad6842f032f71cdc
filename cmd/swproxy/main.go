// Command swproxy serves an app through an swcache worker: the app shell is
// answered from the pre-cache, the posts API network-first with an offline
// snapshot. Configuration comes from SWPROXY_* environment variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/swcache"
	asynchook "github.com/unkn0wn-root/swcache/hooks/async"
	promhooks "github.com/unkn0wn-root/swcache/hooks/prom"
	"github.com/unkn0wn-root/swcache/inject"
	"github.com/unkn0wn-root/swcache/sloghooks"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "swproxy",
		Short:         "Serve an app through a caching interception worker",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "swproxy:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	log, flush, hookLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer flush()

	origin, err := url.Parse(cfg.Origin)
	if err != nil || !origin.IsAbs() {
		return fmt.Errorf("SWPROXY_ORIGIN must be an absolute URL, got %q", cfg.Origin)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := promhooks.New(reg)
	if err != nil {
		return err
	}
	logHooks := asynchook.New(sloghooks.New(hookLog, sloghooks.Options{SelfHealEvery: 10}), 1, 1024)
	defer logHooks.Close()
	hooks := fanout{metrics, logHooks}

	storage, err := newStorage(ctx, cfg, log, hooks)
	if err != nil {
		return err
	}
	defer func() {
		if err := storage.Close(context.Background()); err != nil {
			log.Warn("storage close", swcache.Fields{"err": err})
		}
	}()

	host := swcache.NewHost(swcache.HostOptions{Logger: log})
	if err := register(ctx, cfg, host, storage, log, hooks); err != nil {
		// the app stays reachable uncached, like a page whose worker failed to install
		log.Error("worker registration failed, serving uncached", swcache.Fields{"err": err})
	}

	srv := newProxyServer(host, origin, log)
	admin := newAdminServer(reg, host, storage)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(srv, cfg.Listen) })
	g.Go(func() error { return serve(admin, cfg.AdminListen) })
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down", nil)
		return errors.Join(srv.Shutdown(sctx), admin.Shutdown(sctx))
	})
	log.Info("swproxy listening", swcache.Fields{"listen": cfg.Listen, "admin": cfg.AdminListen, "origin": origin.String()})
	return g.Wait()
}

func serve(e *echo.Echo, addr string) error {
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func register(ctx context.Context, cfg config, host *swcache.Host, storage *swcache.Storage, log swcache.Logger, hooks swcache.Hooks) error {
	m, err := inject.ReadManifest(cfg.Manifest)
	if err != nil {
		return err
	}
	w, err := swcache.New(swcache.Options{
		Storage:          storage,
		ShellNamespace:   cfg.shellNamespace(),
		DataNamespace:    cfg.dataNamespace(),
		Origin:           cfg.Origin,
		Precache:         inject.CacheableFiles(m),
		APIPattern:       cfg.APIPattern,
		DataKey:          cfg.DataKey,
		ListField:        cfg.ListField,
		ProvenanceHeader: cfg.ProvenanceHeader,
		Client:           &http.Client{Transport: http.DefaultTransport},
		NetworkTimeout:   cfg.NetworkTimeout,
		Logger:           log,
		Hooks:            hooks,
	})
	if err != nil {
		return err
	}
	start := time.Now()
	report, err := host.Register(ctx, w)
	if err != nil {
		return err
	}
	log.Info("worker active", swcache.Fields{
		"shell":    cfg.shellNamespace(),
		"data":     cfg.dataNamespace(),
		"deleted":  report.Deleted,
		"failed":   len(report.Failed),
		"duration": time.Since(start).String(),
	})
	return nil
}

type status struct {
	State       string            `json:"state"`
	Shell       string            `json:"shell,omitempty"`
	Data        string            `json:"data,omitempty"`
	Generations map[string]uint64 `json:"generations,omitempty"`
}

func newAdminServer(reg *prometheus.Registry, host *swcache.Host, storage *swcache.Storage) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	e.GET("/status", func(c echo.Context) error {
		w := host.Active()
		if w == nil {
			return c.JSON(http.StatusServiceUnavailable, status{State: "unregistered"})
		}
		shell, data := w.Namespaces()
		st := status{State: w.State().String(), Shell: shell, Data: data}
		gens, err := storage.Generations(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		st.Generations = gens
		return c.JSON(http.StatusOK, st)
	})
	return e
}
