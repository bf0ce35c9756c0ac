// Package logger provides support for initializing the log system.
package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceIDFn represents a function that can return the trace id from
// the specified context.
type TraceIDFn func(ctx context.Context) string

// Logger represents a logger for logging information.
type Logger struct {
	zl        *zap.Logger
	sugar     *zap.SugaredLogger
	traceIDFn TraceIDFn
	events    Events
}

// New constructs a new log for application use.
func New(w io.Writer, minLevel Level, serviceName string, traceIDFn TraceIDFn) *Logger {
	return new(w, minLevel, serviceName, traceIDFn, Events{})
}

// NewWithEvents constructs a new log for application use with events.
func NewWithEvents(w io.Writer, minLevel Level, serviceName string, traceIDFn TraceIDFn, events Events) *Logger {
	return new(w, minLevel, serviceName, traceIDFn, events)
}

// NewStdLogger returns a standard library Logger that wraps the logger.
func NewStdLogger(logger *Logger, level Level) *log.Logger {
	std, err := zap.NewStdLogAt(logger.zl, level.zap())
	if err != nil {
		return zap.NewStdLog(logger.zl)
	}
	return std
}

// Debug logs at LevelDebug with the given context.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelDebug, msg, args...)
}

// Info logs at LevelInfo with the given context.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelInfo, msg, args...)
}

// Warn logs at LevelWarn with the given context.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelWarn, msg, args...)
}

// Error logs at LevelError with the given context.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelError, msg, args...)
}

// BuildInfo logs information stored inside the Go binary.
func (l *Logger) BuildInfo(ctx context.Context) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	var values []any
	for _, s := range info.Settings {
		key := s.Key
		if quoteKey(key) {
			key = fmt.Sprintf("%q", key)
		}
		values = append(values, key, s.Value)
	}

	values = append(values, "goversion", info.GoVersion)
	values = append(values, "modversion", info.Main.Version)

	l.Info(ctx, "build info", values...)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func (l *Logger) write(ctx context.Context, level Level, msg string, args ...any) {
	if !l.zl.Core().Enabled(level.zap()) {
		return
	}

	if l.traceIDFn != nil {
		if id := l.traceIDFn(ctx); id != "" {
			args = append(args, "trace_id", id)
		}
	}

	switch level {
	case LevelDebug:
		l.sugar.Debugw(msg, args...)
	case LevelWarn:
		l.sugar.Warnw(msg, args...)
	case LevelError:
		l.sugar.Errorw(msg, args...)
	default:
		l.sugar.Infow(msg, args...)
	}

	if fn := l.events.fn(level); fn != nil {
		fn(ctx, toRecord(level, msg, args))
	}
}

func new(w io.Writer, minLevel Level, serviceName string, traceIDFn TraceIDFn, events Events) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(minLevel.zap()),
	)

	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).With(zap.String("service", serviceName))

	return &Logger{
		zl:        zl,
		sugar:     zl.Sugar(),
		traceIDFn: traceIDFn,
		events:    events,
	}
}

func toRecord(level Level, msg string, args []any) Record {
	attrs := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		attrs[key] = args[i+1]
	}

	return Record{
		Time:       time.Now(),
		Message:    msg,
		Level:      level,
		Attributes: attrs,
	}
}

func quoteKey(key string) bool {
	for _, r := range key {
		if r == ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
