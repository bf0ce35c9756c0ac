package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer

	traceID := func(context.Context) string { return "abc" }
	log := logger.New(&buf, logger.LevelInfo, "TEST", traceID)

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hello", "slug", "ironworks")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))

	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "ironworks", entry["slug"])
	assert.Equal(t, "TEST", entry["service"])
	assert.Equal(t, "abc", entry["trace_id"])
}

func Test_LoggerEvents(t *testing.T) {
	var got logger.Record

	events := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			got = r
		},
	}

	var buf bytes.Buffer
	log := logger.NewWithEvents(&buf, logger.LevelInfo, "TEST", nil, events)

	log.Error(context.Background(), "boom", "err", "disk full")

	assert.Equal(t, "boom", got.Message)
	assert.Equal(t, logger.LevelError, got.Level)
	assert.Equal(t, "disk full", got.Attributes["err"])
}
