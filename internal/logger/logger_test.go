package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewLevel(t *testing.T) {
	assert.True(t, New("debug").Desugar().Core().Enabled(zap.DebugLevel))
	assert.False(t, New("info").Desugar().Core().Enabled(zap.DebugLevel))
	assert.True(t, New("").Desugar().Core().Enabled(zap.InfoLevel))
}
