// Package logger is the component-tagged structured logger used across prereqbot.
// Every record carries a "component" field naming the subsystem that emitted it.
package logger

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.Logger]

func init() {
	l, err := build("info", "console")
	if err != nil {
		l = zap.NewNop()
	}
	current.Store(l)
}

// Init configures the process logger. level is one of debug, info, warn, error;
// format is "console" or "json".
func Init(level, format string) error {
	l, err := build(level, format)
	if err != nil {
		return err
	}
	old := current.Swap(l)
	_ = old.Sync()
	return nil
}

// Use installs l as the process logger and returns a function restoring the previous one.
func Use(l *zap.Logger) (restore func()) {
	old := current.Swap(l)
	return func() { current.Store(old) }
}

// L returns the underlying zap logger.
func L() *zap.Logger { return current.Load() }

// Sync flushes buffered records.
func Sync() error { return current.Load().Sync() }

func build(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build(zap.AddCallerSkip(2))
}

func log(lvl zapcore.Level, component, msg string, fields map[string]interface{}) {
	l := current.Load()
	if ce := l.Check(lvl, msg); ce != nil {
		ce.Write(toZap(component, fields)...)
	}
}

// toZap converts the fields map in sorted key order so records are stable.
func toZap(component string, fields map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	out = append(out, zap.String("component", component))

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := fields[k].(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}

// DebugC logs msg at debug level tagged with component.
func DebugC(component, msg string) { log(zapcore.DebugLevel, component, msg, nil) }

// DebugCF is DebugC with structured fields.
func DebugCF(component, msg string, fields map[string]interface{}) {
	log(zapcore.DebugLevel, component, msg, fields)
}

// InfoC logs msg at info level tagged with component.
func InfoC(component, msg string) { log(zapcore.InfoLevel, component, msg, nil) }

// InfoCF is InfoC with structured fields.
func InfoCF(component, msg string, fields map[string]interface{}) {
	log(zapcore.InfoLevel, component, msg, fields)
}

// WarnC logs msg at warn level tagged with component.
func WarnC(component, msg string) { log(zapcore.WarnLevel, component, msg, nil) }

// WarnCF is WarnC with structured fields.
func WarnCF(component, msg string, fields map[string]interface{}) {
	log(zapcore.WarnLevel, component, msg, fields)
}

// ErrorC logs msg at error level tagged with component.
func ErrorC(component, msg string) { log(zapcore.ErrorLevel, component, msg, nil) }

// ErrorCF is ErrorC with structured fields.
func ErrorCF(component, msg string, fields map[string]interface{}) {
	log(zapcore.ErrorLevel, component, msg, fields)
}
