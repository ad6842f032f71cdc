// Package zap adapts a *zap.Logger to swcache.Logger.
package zap

import (
	"github.com/unkn0wn-root/swcache"
	"go.uber.org/zap"
)

var _ swcache.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New names the logger "swcache". A nil l yields a no-op logger.
func New(l *zap.Logger) ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return ZapLogger{L: l.Named("swcache")}
}

func (z ZapLogger) Debug(msg string, f swcache.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f swcache.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f swcache.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f swcache.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f swcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
