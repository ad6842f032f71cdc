package swcache

import (
	"context"
	"net/http"
	"time"
)

// Worker is one deployed version of the interception layer.
type Worker interface {
	// Install pre-caches Options.Precache into the shell namespace.
	// Either every URL is stored or the worker becomes redundant.
	Install(ctx context.Context) error
	// Activate removes stale namespaces (best effort) and starts serving.
	Activate(ctx context.Context) (CleanupReport, error)
	// Handle answers one intercepted request. Only valid while Active.
	Handle(ctx context.Context, req *http.Request) (*http.Response, error)
	// Supersede stops an active worker from accepting new requests.
	Supersede()
	State() State
	// Namespaces returns the current shell and data namespace names.
	Namespaces() (shell, data string)
}

// CleanupReport lists what Activate removed and what it had to leave behind.
type CleanupReport struct {
	Deleted []string
	Failed  map[string]error
}

// Options configure a Worker. Storage is required; everything else has a default.
type Options struct {
	Storage *Storage

	// Version-tagged namespace names; bump them to roll a new deployment.
	ShellNamespace string // "" => "shell-v1"
	DataNamespace  string // "" => "data-v1"

	// Origin resolves relative Precache paths, e.g. "https://app.example".
	Origin   string
	Precache []string

	APIPattern       string // substring of the URL selecting network-first; "" => "dummyjson.com/posts"
	DataKey          string // logical key of the API snapshot; "" => "latest-posts"
	ListField        string // gjson path of the list to shuffle; "" => "posts"
	ProvenanceHeader string // "" => "X-Source"

	Client             *http.Client  // nil => &http.Client{}; must not route back through a Host
	NetworkTimeout     time.Duration // network-first only; 0 => 10s, < 0 disables
	InstallConcurrency int           // parallel pre-cache fetches; 0 => 6

	// Intn returns a uniform int in [0, n); nil => math/rand/v2.IntN.
	Intn func(n int) int

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used
}

func New(opts Options) (Worker, error) {
	return newWorker(opts)
}
