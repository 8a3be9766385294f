package logger

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger shared by every component.
// Each call carries a message, a short machine-readable event name and optional fields.
type Logger interface {
	DebugObj(msg, event string, fields map[string]any)
	InfoObj(msg, event string, fields map[string]any)
	WarnObj(msg, event string, fields map[string]any)
	ErrorObj(msg, event string, fields map[string]any)
	With(fields map[string]any) Logger
	Sync() error
}

// zapLogger adapts a zap.Logger to Logger.
type zapLogger struct {
	l *zap.Logger
}

// New builds a zap-backed logger. format is "json" (default) or "console".
func New(level, format string) (Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		cfg = zap.NewDevelopmentConfig()
	case "", "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return &zapLogger{l: l}, nil
}

// NewFromZap wraps an existing zap logger.
func NewFromZap(l *zap.Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return &zapLogger{l: l}
}

func (z *zapLogger) DebugObj(msg, event string, fields map[string]any) {
	z.write(zapcore.DebugLevel, msg, event, fields)
}

func (z *zapLogger) InfoObj(msg, event string, fields map[string]any) {
	z.write(zapcore.InfoLevel, msg, event, fields)
}

func (z *zapLogger) WarnObj(msg, event string, fields map[string]any) {
	z.write(zapcore.WarnLevel, msg, event, fields)
}

func (z *zapLogger) ErrorObj(msg, event string, fields map[string]any) {
	z.write(zapcore.ErrorLevel, msg, event, fields)
}

// With returns a child logger that always carries the given fields.
func (z *zapLogger) With(fields map[string]any) Logger {
	return &zapLogger{l: z.l.With(toZapFields(fields)...)}
}

func (z *zapLogger) Sync() error {
	return z.l.Sync()
}

func (z *zapLogger) write(lvl zapcore.Level, msg, event string, fields map[string]any) {
	ce := z.l.Check(lvl, msg)
	if ce == nil {
		return
	}
	zf := make([]zap.Field, 0, len(fields)+1)
	if event != "" {
		zf = append(zf, zap.String("event", event))
	}
	ce.Write(append(zf, toZapFields(fields)...)...)
}

// toZapFields converts the map into zap fields ordered by key so output is stable.
func toZapFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) DebugObj(string, string, map[string]any) {}
func (NopLogger) InfoObj(string, string, map[string]any)  {}
func (NopLogger) WarnObj(string, string, map[string]any)  {}
func (NopLogger) ErrorObj(string, string, map[string]any) {}
func (n NopLogger) With(map[string]any) Logger            { return n }
func (NopLogger) Sync() error                             { return nil }

// Ensure returns log, or a NopLogger when log is nil.
func Ensure(log Logger) Logger {
	if log == nil {
		return NopLogger{}
	}
	return log
}
