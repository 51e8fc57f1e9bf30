package telemetry

import (
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = newLogger("json")
)

// Configure rebuilds the process logger. Format is "json" or "console".
func Configure(format string) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(format)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write(zapcore.InfoLevel, msg, fields)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	write(zapcore.ErrorLevel, msg, fields)
}

func write(level zapcore.Level, msg string, fields map[string]any) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	zf := make([]zap.Field, 0, len(fields))
	for _, k := range keys {
		zf = append(zf, zap.Any(k, fields[k]))
	}

	if level == zapcore.ErrorLevel {
		l.Error(msg, zf...)
		return
	}
	l.Info(msg, zf...)
}

func newLogger(format string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
		cfg.Encoding = "console"
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true

	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
