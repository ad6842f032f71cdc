package prom

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := New(reg)
	require.NoError(t, err)

	h.SelfHeal("shell-v1", "k", "stale_gen")
	h.SelfHeal("shell-v1", "k", "stale_gen")
	h.Fallback("latest-posts", true)
	h.Fallback("latest-posts", false)
	h.Fallback("latest-posts", true)
	h.GenBumpError("data-v1", errors.New("x"))
	h.InstallFailed("https://app.example/", errors.New("x"))

	assert.Equal(t, 2.0, testutil.ToFloat64(h.selfHeal.WithLabelValues("shell-v1", "stale_gen")))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.fallbacks.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.fallbacks.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.genErrors.WithLabelValues("data-v1", "bump")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.installFailed))

	expected := `
# HELP swcache_install_failed_total Worker installs that failed.
# TYPE swcache_install_failed_total counter
swcache_install_failed_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "swcache_install_failed_total"))
}

func TestDoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}
