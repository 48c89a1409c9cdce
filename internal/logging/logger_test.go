package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLoggerDefaultsToNop(t *testing.T) {
	SetLogger(nil)
	assert.False(t, Logger().Core().Enabled(zapcore.ErrorLevel))
}

func TestConfigureLevels(t *testing.T) {
	defer SetLogger(nil)

	l, err := Configure("warn", false)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	l, err = Configure("warn", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = Configure("chatty", false)
	require.Error(t, err)
}

func TestSetLoggerReplacesShared(t *testing.T) {
	defer SetLogger(nil)
	custom := zap.NewExample()
	SetLogger(custom)
	assert.Same(t, custom, Logger())
}
