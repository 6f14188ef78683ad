package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFallsBackToInfo(t *testing.T) {
	for _, lvl := range []string{"debug", "warn", "nonsense", ""} {
		l := New(lvl, false)
		assert.NotNil(t, l)
		assert.NotNil(t, l.Named("component"))
	}
}

func TestNopDiscards(t *testing.T) {
	l := NewNop().Named("x")
	l.Info("ignored", String("k", "v"), Int("n", 1), Strings("s", []string{"a"}))
	l.Warnf("ignored %d", 1)
	assert.NoError(t, l.Sync())
}
