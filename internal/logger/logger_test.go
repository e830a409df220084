package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want *zapcore.Level
	}{
		{"debug", levelPtr(zapcore.DebugLevel)},
		{"info", levelPtr(zapcore.InfoLevel)},
		{"warn", levelPtr(zapcore.WarnLevel)},
		{"error", levelPtr(zapcore.ErrorLevel)},
		{"verbose", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestWrap_FieldsAndWith(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Wrap(zap.New(core)).With(String("component", "cards"))

	log.Warn("storage write failed", String("key", "cardManager_cards"), Error(errors.New("disk full")))
	log.Info("cards loaded", Int("count", 3))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "storage write failed", entries[0].Message)
	ctx := entries[0].ContextMap()
	require.Equal(t, "cards", ctx["component"])
	require.Equal(t, "cardManager_cards", ctx["key"])
	require.Equal(t, "cards loaded", entries[1].Message)
	require.Equal(t, int64(3), entries[1].ContextMap()["count"])
	require.Equal(t, "cards", entries[1].ContextMap()["component"])
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("ignored")
	require.NoError(t, log.Sync())
}

func levelPtr(l zapcore.Level) *zapcore.Level { return &l }
