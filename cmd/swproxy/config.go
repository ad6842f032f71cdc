package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// config is read from SWPROXY_* environment variables.
type config struct {
	Listen          string        `env:"SWPROXY_LISTEN"           envDefault:":8080"`
	AdminListen     string        `env:"SWPROXY_ADMIN_LISTEN"     envDefault:":9090"`
	ShutdownTimeout time.Duration `env:"SWPROXY_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Origin   string `env:"SWPROXY_ORIGIN,required,notEmpty"`
	Manifest string `env:"SWPROXY_MANIFEST" envDefault:"build/asset-manifest.json"`
	// Version tags both namespaces (shell-<v>, data-<v>). Bump it on every deploy.
	Version string `env:"SWPROXY_VERSION" envDefault:"v1"`

	APIPattern       string        `env:"SWPROXY_API_PATTERN"       envDefault:"dummyjson.com/posts"`
	DataKey          string        `env:"SWPROXY_DATA_KEY"          envDefault:"latest-posts"`
	ListField        string        `env:"SWPROXY_LIST_FIELD"        envDefault:"posts"`
	ProvenanceHeader string        `env:"SWPROXY_PROVENANCE_HEADER" envDefault:"X-Source"`
	NetworkTimeout   time.Duration `env:"SWPROXY_NETWORK_TIMEOUT"   envDefault:"10s"`

	Store         string `env:"SWPROXY_STORE"           envDefault:"memory"`  // memory|bigcache|ristretto|redis|sqlite
	Codec         string `env:"SWPROXY_CODEC"           envDefault:"msgpack"` // msgpack|cbor|json
	KeyPrefix     string `env:"SWPROXY_KEY_PREFIX"      envDefault:"swcache"`
	MaxEntryBytes int    `env:"SWPROXY_MAX_ENTRY_BYTES" envDefault:"0"`

	// In-process generation counters idle longer than GenRetention are pruned
	// every GenCleanupInterval. 0 keeps them forever. Ignored for redis.
	GenCleanupInterval time.Duration `env:"SWPROXY_GEN_CLEANUP_INTERVAL" envDefault:"1h"`
	GenRetention       time.Duration `env:"SWPROXY_GEN_RETENTION"        envDefault:"0"`

	RedisAddr     string `env:"SWPROXY_REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"SWPROXY_REDIS_PASSWORD"`
	RedisDB       int    `env:"SWPROXY_REDIS_DB"       envDefault:"0"`

	SQLitePath       string `env:"SWPROXY_SQLITE_PATH"        envDefault:"swcache.db"`
	BigcacheMaxMB    int    `env:"SWPROXY_BIGCACHE_MAX_MB"    envDefault:"256"`
	RistrettoMaxCost int64  `env:"SWPROXY_RISTRETTO_MAX_COST" envDefault:"268435456"` // bytes

	Log      string `env:"SWPROXY_LOG"       envDefault:"zap"` // zap|logrus|slog
	LogLevel string `env:"SWPROXY_LOG_LEVEL" envDefault:"info"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Version == "" {
		return config{}, fmt.Errorf("SWPROXY_VERSION must not be empty")
	}
	return cfg, nil
}

func (c config) shellNamespace() string { return "shell-" + c.Version }
func (c config) dataNamespace() string  { return "data-" + c.Version }
