package logger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func resetLogger() {
	global = nil
	once = sync.Once{}
}

func TestInit(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{"json info", "info", "json", zapcore.InfoLevel, false},
		{"console debug", "debug", "console", zapcore.DebugLevel, false},
		{"json warn", "warn", "json", zapcore.WarnLevel, false},
		{"unknown level", "loud", "json", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetLogger()
			err := Init(tt.level, tt.format)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, GetLevel())
		})
	}
}

func TestInit_SecondCallIsNoop(t *testing.T) {
	resetLogger()
	require.NoError(t, Init("warn", "json"))
	first := L()

	require.NoError(t, Init("debug", "console"))
	assert.Same(t, first, L())
	assert.Equal(t, zapcore.WarnLevel, GetLevel())
}

func TestSetLevel(t *testing.T) {
	resetLogger()
	require.NoError(t, Init("info", "json"))

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, zapcore.DebugLevel, GetLevel())

	require.Error(t, SetLevel("bogus"))
	assert.Equal(t, zapcore.DebugLevel, GetLevel(), "failed change must keep previous level")

	require.NoError(t, SetLevel("info"))
}

func TestL_PanicsWithoutInit(t *testing.T) {
	resetLogger()
	assert.Panics(t, func() { L() })
}

func TestHelpers(t *testing.T) {
	resetLogger()
	require.NoError(t, Init("debug", "json"))

	assert.NotPanics(t, func() {
		Debug("debug")
		Info("info")
		Warn("warn")
		Error("error")
	})
	assert.NotNil(t, With())
	assert.NotNil(t, S())
	assert.Equal(t, "reconciler", Named("reconciler").Name())
}

func TestSync(t *testing.T) {
	resetLogger()
	assert.NoError(t, Sync(), "sync without a logger")

	require.NoError(t, Init("info", "json"))
	_ = Sync()
}
