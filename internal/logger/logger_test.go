package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	dev, err := New("DEV")
	require.NoError(t, err)
	assert.True(t, dev.Desugar().Core().Enabled(zapcore.DebugLevel))

	prod, err := New("production")
	require.NoError(t, err)
	assert.False(t, prod.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, prod.Desugar().Core().Enabled(zapcore.InfoLevel))
}
