package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrNopReturnsNopForNil(t *testing.T) {
	logger := OrNop(nil)
	require.NotNil(t, logger)
	// Must not panic.
	logger.Debug("debug %d", 1)
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")
}

func TestIsNilDetectsTypedNil(t *testing.T) {
	var typed *fileLogger
	require.True(t, IsNil(typed))
	require.True(t, IsNil(nil))
	require.False(t, IsNil(Nop()))
}

func TestComponentLoggerWritesWithoutPanic(t *testing.T) {
	logger := NewComponentLogger("test-component")
	require.NotNil(t, logger)
	logger.Info("hello %s", "world")
}

func TestLevelString(t *testing.T) {
	require.Equal(t, "DEBUG", DEBUG.String())
	require.Equal(t, "ERROR", ERROR.String())
	require.Equal(t, "UNKNOWN", Level(42).String())
}
