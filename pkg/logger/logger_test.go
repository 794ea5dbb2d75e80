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

func TestComponentTaggedRecords(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := Use(zap.New(core))
	defer restore()

	DebugC("dispatch", "dropped below level")
	InfoCF("dispatch", "Guild available", map[string]interface{}{
		"guild": "Rebels",
	})
	ErrorCF("config", "Reload failed", map[string]interface{}{
		"error": errors.New("boom"),
	})

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, "Guild available", entries[0].Message)
	assert.Equal(t, "dispatch", entries[0].ContextMap()["component"])
	assert.Equal(t, "Rebels", entries[0].ContextMap()["guild"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "config", entries[1].ContextMap()["component"])
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestInitRejectsBadSettings(t *testing.T) {
	restore := Use(L())
	defer restore()

	assert.Error(t, Init("loud", "console"))
	assert.Error(t, Init("info", "xml"))
	assert.NoError(t, Init("debug", "json"))
}
