package logrus

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/unkn0wn-root/swcache"
)

func TestLogrusLogger(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	l.Info("worker active", swcache.Fields{"shell": "shell-v2"})
	l.Error("install failed", nil)

	if len(hook.Entries) != 2 {
		t.Fatalf("entries = %d", len(hook.Entries))
	}
	e := hook.Entries[0]
	if e.Level != logrus.InfoLevel || e.Message != "worker active" {
		t.Fatalf("entry = %+v", e)
	}
	if e.Data["shell"] != "shell-v2" || e.Data["component"] != "swcache" {
		t.Fatalf("data = %v", e.Data)
	}
	if hook.LastEntry().Level != logrus.ErrorLevel {
		t.Fatalf("last level = %s", hook.LastEntry().Level)
	}
}
