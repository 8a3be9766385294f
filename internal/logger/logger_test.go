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

func TestZapLoggerWritesEventAndFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	log := NewFromZap(zap.New(core))

	log.WarnObj("row extraction failed", "row_error", map[string]any{
		"row":   3,
		"error": errors.New("date missing"),
	})

	entries := logs.FilterMessage("row extraction failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "row_error", ctx["event"])
	assert.EqualValues(t, 3, ctx["row"])
	assert.Equal(t, "date missing", ctx["error"])
}

func TestZapLoggerWithCarriesFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	log := NewFromZap(zap.New(core)).With(map[string]any{"provider_id": "daiichisankyo"})

	log.InfoObj("fetch start", "fetch_start", nil)
	log.DebugObj("dropped below level", "debug", nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "daiichisankyo", logs.All()[0].ContextMap()["provider_id"])
}

func TestNewRejectsUnknownLevelAndFormat(t *testing.T) {
	t.Parallel()

	_, err := New("loud", "json")
	require.Error(t, err)

	_, err = New("info", "xml")
	require.Error(t, err)

	l, err := New("debug", "console")
	require.NoError(t, err)
	require.NotNil(t, l)
}

func TestEnsure(t *testing.T) {
	t.Parallel()

	assert.IsType(t, NopLogger{}, Ensure(nil))
}
