package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zap.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zap.InfoLevel, ParseLevel("chatty"))
	assert.Equal(t, zap.InfoLevel, ParseLevel(""))
}

func TestLevelerSetAll(t *testing.T) {
	lw := &levelSetter{
		defaultLevel: zap.InfoLevel,
		levelers:     make(map[string]zap.AtomicLevel),
	}

	existing := lw.levelFor("existing", zap.InfoLevel, false)
	lw.SetAll(zap.DebugLevel)

	assert.Equal(t, zap.DebugLevel, existing.Level())
	assert.Equal(t, zap.DebugLevel, lw.GetLevel("existing"))
	assert.Equal(t, zap.DebugLevel, lw.GetLevel("unknown"))

	created := lw.levelFor("created", zap.InfoLevel, false)
	assert.Equal(t, zap.DebugLevel, created.Level())

	lw.SetLevel("created", zap.ErrorLevel)
	assert.Equal(t, zap.ErrorLevel, lw.GetLevel("created"))
	assert.Equal(t, zap.DebugLevel, lw.GetLevel("existing"))
}
