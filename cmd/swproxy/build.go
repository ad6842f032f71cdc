package main

import (
	"context"
	"fmt"
	stdslog "log/slog"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/swcache"
	"github.com/unkn0wn-root/swcache/codec"
	"github.com/unkn0wn-root/swcache/genstore"
	logruslog "github.com/unkn0wn-root/swcache/log/logrus"
	slogadapter "github.com/unkn0wn-root/swcache/log/slog"
	zaplog "github.com/unkn0wn-root/swcache/log/zap"
	"github.com/unkn0wn-root/swcache/provider"
	"github.com/unkn0wn-root/swcache/provider/bigcache"
	"github.com/unkn0wn-root/swcache/provider/memory"
	redisprov "github.com/unkn0wn-root/swcache/provider/redis"
	"github.com/unkn0wn-root/swcache/provider/ristretto"
	"github.com/unkn0wn-root/swcache/provider/sqlite"
)

// newLogger returns the swcache logger, a flush func, and the slog logger
// hook events are written to.
func newLogger(cfg config) (swcache.Logger, func(), *stdslog.Logger, error) {
	switch strings.ToLower(cfg.Log) {
	case "", "zap":
		lvl, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("log level: %w", err)
		}
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(lvl)
		l, err := zc.Build()
		if err != nil {
			return nil, nil, nil, err
		}
		return zaplog.New(l), func() { _ = l.Sync() }, stdslog.Default(), nil

	case "logrus":
		lvl, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("log level: %w", err)
		}
		l := logrus.New()
		l.SetOutput(os.Stderr)
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetLevel(lvl)
		return logruslog.New(l), func() {}, stdslog.Default(), nil

	case "slog":
		var lvl stdslog.Level
		if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, nil, nil, fmt.Errorf("log level: %w", err)
		}
		l := stdslog.New(stdslog.NewJSONHandler(os.Stderr, &stdslog.HandlerOptions{Level: lvl}))
		return slogadapter.Logger{L: l}, func() {}, l, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown logger %q (want zap, logrus or slog)", cfg.Log)
	}
}

// newStore builds the provider and the matching generation store. Redis gets
// a Redis gen store so generations survive restarts like the entries do; the
// others keep generations in-process, pruned per SWPROXY_GEN_RETENTION.
func newStore(ctx context.Context, cfg config) (provider.Provider, genstore.GenStore, swcache.SetCostFunc, error) {
	switch strings.ToLower(cfg.Store) {
	case "", "memory":
		return memory.New(memory.Config{}), localGens(cfg), nil, nil

	case "bigcache":
		p, err := bigcache.New(ctx, bigcache.Config{HardMaxCacheSizeMB: cfg.BigcacheMaxMB})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("bigcache: %w", err)
		}
		return p, localGens(cfg), nil, nil

	case "ristretto":
		p, err := ristretto.New(ristretto.Config{
			NumCounters: 1e5,
			MaxCost:     cfg.RistrettoMaxCost,
			BufferItems: 64,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		byteCost := func(_ string, raw []byte) int64 { return int64(len(raw)) }
		return p, localGens(cfg), byteCost, nil

	case "redis":
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		p, err := redisprov.New(redisprov.Config{Client: rdb})
		if err != nil {
			_ = rdb.Close()
			return nil, nil, nil, err
		}
		// the gen store owns the client and closes it with the Storage
		return p, genstore.NewRedisGenStore(rdb, cfg.KeyPrefix).OwnClient(), nil, nil

	case "sqlite":
		p, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return p, localGens(cfg), nil, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store %q (want memory, bigcache, ristretto, redis or sqlite)", cfg.Store)
	}
}

func localGens(cfg config) *genstore.LocalGenStore {
	return genstore.NewLocalGenStore(cfg.GenCleanupInterval, cfg.GenRetention)
}

func newStorage(ctx context.Context, cfg config, log swcache.Logger, hooks swcache.Hooks) (*swcache.Storage, error) {
	cd, err := codec.Named[swcache.Snapshot](cfg.Codec)
	if err != nil {
		return nil, err
	}
	p, gs, cost, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s, err := swcache.NewStorage(swcache.StorageOptions{
		Provider:       p,
		Codec:          cd,
		GenStore:       gs,
		KeyPrefix:      cfg.KeyPrefix,
		MaxEntryBytes:  cfg.MaxEntryBytes,
		ComputeSetCost: cost,
		Logger:         log,
		Hooks:          hooks,
	})
	if err != nil {
		_ = p.Close(ctx)
		if gs != nil {
			_ = gs.Close(ctx)
		}
		return nil, err
	}
	return s, nil
}

// fanout delivers every event to each hook in order.
type fanout []swcache.Hooks

var _ swcache.Hooks = fanout(nil)

func (f fanout) SelfHeal(ns, k, r string) {
	for _, h := range f {
		h.SelfHeal(ns, k, r)
	}
}

func (f fanout) ProviderSetRejected(ns, k string) {
	for _, h := range f {
		h.ProviderSetRejected(ns, k)
	}
}

func (f fanout) GenSnapshotError(ns string, err error) {
	for _, h := range f {
		h.GenSnapshotError(ns, err)
	}
}

func (f fanout) GenBumpError(ns string, err error) {
	for _, h := range f {
		h.GenBumpError(ns, err)
	}
}

func (f fanout) CleanupFailed(ns string, err error) {
	for _, h := range f {
		h.CleanupFailed(ns, err)
	}
}

func (f fanout) Fallback(key string, hit bool) {
	for _, h := range f {
		h.Fallback(key, hit)
	}
}

func (f fanout) InstallFailed(url string, err error) {
	for _, h := range f {
		h.InstallFailed(url, err)
	}
}
