package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	l, err := New(true, false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New(false, true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestComponent(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	Component(zap.New(core), "relay").Info("tick")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "relay", entries[0].ContextMap()["component"])
}

func TestComponent_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() { Component(nil, "x").Info("ignored") })
}
