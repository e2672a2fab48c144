package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	require.NoError(t, Init("production"))
	assert.Equal(t, zapcore.InfoLevel, Level())
	assert.False(t, zap.L().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init("development"))
	assert.Equal(t, zapcore.DebugLevel, Level())
}

func TestSetLevel(t *testing.T) {
	require.NoError(t, Init("production"))

	require.NoError(t, SetLevel("warn"))
	assert.Equal(t, zapcore.WarnLevel, Level())
	assert.False(t, zap.L().Core().Enabled(zapcore.InfoLevel))

	require.NoError(t, SetLevel(""))
	assert.Equal(t, zapcore.WarnLevel, Level())

	assert.Error(t, SetLevel("loud"))
}
