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

func TestZapLoggerForwardsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	l.Debug("lookup", map[string]interface{}{"hash": "abc", "found": true})
	l.Error("save failed", errors.New("disk full"), map[string]interface{}{"hash": "abc"})

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "lookup", entries[0].Message)
	assert.Equal(t, map[string]interface{}{"hash": "abc", "found": true}, entries[0].ContextMap())
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "disk full", entries[1].ContextMap()["error"])
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	l.Info("ignored", nil)
	l.Warn("ignored", map[string]interface{}{"k": 1})
	assert.NoError(t, l.Sync())
}

func TestToFieldsSorted(t *testing.T) {
	fields := toFields(map[string]interface{}{"b": 2, "a": 1, "c": 3})
	require.Len(t, fields, 3)
	assert.Equal(t, "a", fields[0].Key)
	assert.Equal(t, "c", fields[2].Key)
	assert.Nil(t, toFields(nil))
}
