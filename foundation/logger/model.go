package logger

import (
	"context"
	"time"

	"go.uber.org/zap/zapcore"
)

// Level represents different logging levels.
type Level int

// A set of possible logging levels.
const (
	LevelDebug Level = iota - 1
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zap() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// String returns the lower case name of the level.
func (l Level) String() string {
	return l.zap().String()
}

// Record represents the data that is being logged.
type Record struct {
	Time       time.Time
	Message    string
	Level      Level
	Attributes map[string]any
}

// EventFn is a function to be executed when configured against a log level.
type EventFn func(ctx context.Context, r Record)

// Events contains an assignment of an event function to a log level.
type Events struct {
	Debug EventFn
	Info  EventFn
	Warn  EventFn
	Error EventFn
}

func (e Events) fn(level Level) EventFn {
	switch level {
	case LevelDebug:
		return e.Debug
	case LevelInfo:
		return e.Info
	case LevelWarn:
		return e.Warn
	case LevelError:
		return e.Error
	}
	return nil
}
