// Package logging configures the framework-wide structured logger.
//
// windco logs through logr backed by a zap core. Verbosity follows the
// usual logr convention: 0 for operational messages, DEBUG and TRACE for
// increasingly chatty diagnostics. Long campaigns emit a lot of per-case
// detail, so everything below the default level must be cheap to skip.
package logging

import (
	"context"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels used with logger.V(...).
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

// Log is the root logger. It defaults to a production-style console logger
// and is replaced by Setup when the CLI parses its flags.
var Log = newZapLogger("info", "console", os.Stderr)

// Options controls logger construction.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Unknown values
	// fall back to "info". "debug" enables V(DEBUG) and V(TRACE) output.
	Level string

	// Format is "console" or "json".
	Format string
}

// Setup builds the root logger from options and installs it as Log.
// It returns the logger so callers can thread it through contexts.
func Setup(opts Options) logr.Logger {
	Log = newZapLogger(opts.Level, opts.Format, os.Stderr)
	return Log
}

func newZapLogger(level, format string, w *os.File) logr.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		// zapr maps logr V-levels onto negative zap levels, so permit
		// a couple of levels below Debug for TRACE.
		zapLevel = zapcore.Level(-TRACE)
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if strings.ToLower(format) == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(w), zap.NewAtomicLevelAt(zapLevel))
	return zapr.NewLogger(zap.New(core))
}

// NewTestLogger installs a debug-level console logger as Log so test
// suites see V(DEBUG) and V(TRACE) output, and returns it.
func NewTestLogger() logr.Logger {
	Log = newZapLogger("debug", "console", os.Stderr)
	return Log
}

type contextKey struct{}

// NewContext returns a context carrying the given logger.
func NewContext(ctx context.Context, logger logr.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx, or the root logger when
// none is present.
func FromContext(ctx context.Context) logr.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(contextKey{}).(logr.Logger); ok {
			return logger
		}
	}
	return Log
}
