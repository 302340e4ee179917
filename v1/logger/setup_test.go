package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		Debug:     zap.DebugLevel,
		Info:      zap.InfoLevel,
		Warning:   zap.WarnLevel,
		Error:     zap.ErrorLevel,
		"":        zap.InfoLevel,
		"verbose": zap.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestNewLoggerClient(t *testing.T) {
	client := NewLoggerClient(Config{Level: Debug, ServiceName: "tenant-api"})
	require.NotNil(t, client.Zap)
	assert.True(t, client.Zap.Core().Enabled(zap.DebugLevel))
}

func TestLoggerClientFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	client := NewFromZap(zap.New(core))

	boom := errors.New("boom")
	client.Error("write failed", boom, map[string]interface{}{"table": "system_logs"}, map[string]interface{}{"attempt": 2})
	client.Info("ok", nil, nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	fields := entries[0].ContextMap()
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, "system_logs", fields["table"])
	assert.EqualValues(t, 2, fields["attempt"])
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)

	assert.Empty(t, entries[1].ContextMap())
}

func TestNewNop(t *testing.T) {
	var l Logger = NewNop()
	l.Info("discarded", nil, nil)
	l.Debug("discarded", nil, nil)
	l.Warn("discarded", nil, nil)
	l.Error("discarded", errors.New("x"), nil)
}
