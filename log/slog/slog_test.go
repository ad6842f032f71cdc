package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/swcache"
)

func TestLoggerAttrsSorted(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{
		Level: stdslog.LevelDebug,
		ReplaceAttr: func(_ []string, a stdslog.Attr) stdslog.Attr {
			if a.Key == stdslog.TimeKey {
				return stdslog.Attr{}
			}
			return a
		},
	})
	l := Logger{L: stdslog.New(h)}

	l.Warn("snapshot lookup failed", swcache.Fields{"namespace": "data-v1", "key": "latest-posts"})

	got := strings.TrimSpace(buf.String())
	want := `level=WARN msg="snapshot lookup failed" key=latest-posts namespace=data-v1`
	if got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}
