package zap

import (
	"errors"
	"testing"

	"github.com/unkn0wn-root/swcache"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Warn("stale namespace not removed", swcache.Fields{"namespace": "shell-v1", "err": errors.New("boom")})
	l.Debug("api fetch", nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel || e.LoggerName != "swcache" {
		t.Fatalf("level=%s name=%q", e.Level, e.LoggerName)
	}
	ctx := e.ContextMap()
	if ctx["namespace"] != "shell-v1" || ctx["err"] != "boom" {
		t.Fatalf("fields = %v", ctx)
	}
}

func TestNewNil(t *testing.T) {
	New(nil).Info("ignored", swcache.Fields{"k": 1})
}
