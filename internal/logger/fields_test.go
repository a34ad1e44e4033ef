package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  provider ", Value: " gemini "},
		StringField{Key: "blank", Value: "  "},
		StringField{Key: " ", Value: "no key"},
	)

	require.Len(t, fields, 1)
	assert.Equal(t, "provider", fields[0].Key)
	assert.Equal(t, "gemini", fields[0].String)
	assert.Empty(t, StringFields())
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithFields(zap.New(core), zap.String(FieldSessionID, "session_1")).Info("stored")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "session_1", entries[0].ContextMap()[FieldSessionID])

	assert.NotNil(t, WithFields(nil))
	assert.NotPanics(t, func() { WithFields(nil, zap.String("k", "v")).Info("nop") })
}

func TestForProvider(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	ForProvider(zap.New(core), "gemini", "").Info("call")

	ctx := observed.All()[0].ContextMap()
	assert.Equal(t, "gemini", ctx[FieldProvider])
	assert.NotContains(t, ctx, FieldModel)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("  hello  ", 10))
	assert.Equal(t, "hel...", Truncate("hello", 3))
	assert.Equal(t, "", Truncate("hello", 0))
	assert.Equal(t, "zü...", Truncate("züri", 2))
}

func TestNew(t *testing.T) {
	for _, tc := range []struct{ json, debug bool }{{false, false}, {true, true}} {
		l, err := New(tc.json, tc.debug)
		require.NoError(t, err)
		assert.Equal(t, tc.debug, l.Core().Enabled(zapcore.DebugLevel))
	}
}
