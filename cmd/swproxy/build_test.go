package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/swcache"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SWPROXY_ORIGIN", "https://app.example")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, "shell-v1", cfg.shellNamespace())
	assert.Equal(t, "data-v1", cfg.dataNamespace())
	assert.Equal(t, "dummyjson.com/posts", cfg.APIPattern)
	assert.Equal(t, time.Hour, cfg.GenCleanupInterval)
	assert.Zero(t, cfg.GenRetention)
}

func TestLoadConfigRequiresOrigin(t *testing.T) {
	t.Setenv("SWPROXY_ORIGIN", "")
	_, err := loadConfig()
	assert.Error(t, err)
}

func TestNewStorageForEachStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	for _, store := range []string{"memory", "bigcache", "ristretto", "redis", "sqlite"} {
		t.Run(store, func(t *testing.T) {
			cfg := config{
				Store:            store,
				Codec:            "cbor",
				KeyPrefix:        "swcache",
				RedisAddr:        mr.Addr(),
				SQLitePath:       filepath.Join(t.TempDir(), "swcache.db"),
				BigcacheMaxMB:    16,
				RistrettoMaxCost: 1 << 20,
			}
			s, err := newStorage(ctx, cfg, swcache.NopLogger{}, swcache.NopHooks{})
			require.NoError(t, err)
			defer s.Close(ctx)

			ns := s.Namespace("shell-v1")
			snap := swcache.Snapshot{Status: 200, Header: http.Header{"A": {"b"}}, Body: []byte("x")}
			require.NoError(t, ns.Put(ctx, "https://app.example/", snap))
			got, ok, err := ns.Match(ctx, "https://app.example/")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "x", string(got.Body))
		})
	}
}

func TestNewStorageRejectsUnknown(t *testing.T) {
	ctx := context.Background()
	_, err := newStorage(ctx, config{Store: "nope"}, swcache.NopLogger{}, swcache.NopHooks{})
	assert.Error(t, err)
	_, err = newStorage(ctx, config{Store: "memory", Codec: "xml"}, swcache.NopLogger{}, swcache.NopHooks{})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	for _, name := range []string{"zap", "logrus", "slog"} {
		l, flush, hl, err := newLogger(config{Log: name, LogLevel: "debug"})
		require.NoError(t, err, name)
		require.NotNil(t, hl)
		l.Debug("hello", swcache.Fields{"logger": name})
		flush()
	}
	_, _, _, err := newLogger(config{Log: "printf", LogLevel: "info"})
	assert.Error(t, err)
	_, _, _, err = newLogger(config{Log: "zap", LogLevel: "loud"})
	assert.Error(t, err)
}

type countingHooks struct {
	swcache.NopHooks
	n int
}

func (c *countingHooks) InstallFailed(string, error) { c.n++ }

func TestFanout(t *testing.T) {
	a, b := &countingHooks{}, &countingHooks{}
	fanout{a, b}.InstallFailed("u", errors.New("x"))
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}

func TestAdminStatus(t *testing.T) {
	ctx := context.Background()
	storage, err := newStorage(ctx, config{Store: "memory", Codec: "msgpack", GenCleanupInterval: time.Hour, GenRetention: 24 * time.Hour}, swcache.NopLogger{}, swcache.NopHooks{})
	require.NoError(t, err)
	defer storage.Close(ctx)
	host := swcache.NewHost(swcache.HostOptions{})
	e := newAdminServer(prometheus.NewRegistry(), host, storage)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"state":"unregistered"}`, rec.Body.String())

	w, err := swcache.New(swcache.Options{Storage: storage})
	require.NoError(t, err)
	_, err = host.Register(ctx, w)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"active","shell":"shell-v1","data":"data-v1","generations":{"shell-v1":0}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
