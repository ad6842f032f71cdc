// Package prom counts swcache hook events with Prometheus counters.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/unkn0wn-root/swcache"
)

type Hooks struct {
	selfHeal      *prometheus.CounterVec
	setRejected   *prometheus.CounterVec
	genErrors     *prometheus.CounterVec
	cleanupFailed *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	installFailed prometheus.Counter
}

var _ swcache.Hooks = (*Hooks)(nil)

// New creates the counters and registers them with reg. Namespace labels are
// version-tagged names, so their cardinality grows by one per deployment.
func New(reg prometheus.Registerer) (*Hooks, error) {
	h := &Hooks{
		selfHeal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swcache",
			Name:      "self_heal_total",
			Help:      "Entries deleted on read, by reason.",
		}, []string{"namespace", "reason"}),
		setRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swcache",
			Name:      "provider_set_rejected_total",
			Help:      "Writes refused by the storage provider.",
		}, []string{"namespace"}),
		genErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swcache",
			Name:      "gen_errors_total",
			Help:      "Generation store failures, by operation.",
		}, []string{"namespace", "op"}),
		cleanupFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swcache",
			Name:      "cleanup_failed_total",
			Help:      "Stale namespaces that could not be deleted on activate.",
		}, []string{"namespace"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "swcache",
			Name:      "fallback_total",
			Help:      "Network-first requests answered without the network.",
		}, []string{"result"}),
		installFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "swcache",
			Name:      "install_failed_total",
			Help:      "Worker installs that failed.",
		}),
	}
	for _, c := range []prometheus.Collector{
		h.selfHeal, h.setRejected, h.genErrors, h.cleanupFailed, h.fallbacks, h.installFailed,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) SelfHeal(ns, _ string, reason string) {
	h.selfHeal.WithLabelValues(ns, reason).Inc()
}

func (h *Hooks) ProviderSetRejected(ns, _ string) { h.setRejected.WithLabelValues(ns).Inc() }

func (h *Hooks) GenSnapshotError(ns string, _ error) {
	h.genErrors.WithLabelValues(ns, "snapshot").Inc()
}

func (h *Hooks) GenBumpError(ns string, _ error) { h.genErrors.WithLabelValues(ns, "bump").Inc() }

func (h *Hooks) CleanupFailed(ns string, _ error) { h.cleanupFailed.WithLabelValues(ns).Inc() }

func (h *Hooks) Fallback(_ string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	h.fallbacks.WithLabelValues(result).Inc()
}

func (h *Hooks) InstallFailed(string, error) { h.installFailed.Inc() }
