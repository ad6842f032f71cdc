package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unkn0wn-root/swcache/inject"
	"go.uber.org/zap"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(zap.NewNop())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSwinject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "asset-manifest.json"),
		[]byte(`{"files": {"main.js": "/static/js/main.abc123.js", "main.js.map": "/static/js/main.abc123.js.map"}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "service-worker.js"),
		[]byte("const FILES = [/* sw-injection-point */];\n"), 0o644))
	t.Setenv("SWINJECT_BUILD_DIR", dir)

	out, err := run(t)
	require.NoError(t, err)
	assert.Contains(t, out, "injected 1 files")

	got, err := os.ReadFile(filepath.Join(dir, "service-worker.js"))
	require.NoError(t, err)
	assert.Equal(t, "const FILES = ['/static/js/main.abc123.js'];\n", string(got))

	_, err = run(t)
	assert.ErrorIs(t, err, inject.ErrPlaceholderMissing)
}

func TestSwinjectRejectsArgs(t *testing.T) {
	t.Setenv("SWINJECT_BUILD_DIR", t.TempDir())
	_, err := run(t, "extra")
	assert.Error(t, err)
}

func TestSwinjectMissingBuild(t *testing.T) {
	t.Setenv("SWINJECT_BUILD_DIR", filepath.Join(t.TempDir(), "nope"))
	_, err := run(t)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
