// Package logger adapts zap to the ports.Logger interface.
package logger

import (
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements ports.Logger on top of a zap.Logger.
type ZapLogger struct {
	zl *zap.Logger
}

// New builds a console logger writing to stderr. Verbose mode logs at debug
// level with caller information; otherwise only warnings and errors are shown
// so normal command output stays clean.
func New(verbose bool) *ZapLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		cfg.DisableCaller = true
	}

	zl, err := cfg.Build()
	if err != nil {
		zl = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(cfg.EncoderConfig),
			zapcore.Lock(os.Stderr),
			cfg.Level,
		))
	}
	return &ZapLogger{zl: zl}
}

// NewNop returns a logger that discards everything.
func NewNop() *ZapLogger {
	return &ZapLogger{zl: zap.NewNop()}
}

// FromZap wraps an existing zap logger.
func FromZap(zl *zap.Logger) *ZapLogger {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &ZapLogger{zl: zl}
}

func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.zl.Debug(msg, toFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.zl.Info(msg, toFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.zl.Warn(msg, toFields(fields)...)
}

func (l *ZapLogger) Error(msg string, err error, fields map[string]interface{}) {
	zf := toFields(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.zl.Error(msg, zf...)
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.zl.Sync()
}

// toFields converts the map in key order so output is stable.
func toFields(fields map[string]interface{}) []zap.Field {
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
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
