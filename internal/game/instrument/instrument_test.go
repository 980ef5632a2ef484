package instrument

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunLogsOutcome(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	require.NoError(t, Run(logger, "save", func() error { return nil }))
	boom := errors.New("disk full")
	assert.ErrorIs(t, Run(logger, "save", func() error { return boom }), boom)

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, "operation completed", entries[0].Message)
	assert.Equal(t, "operation failed", entries[1].Message)
	assert.Equal(t, "save", entries[1].ContextMap()["op"])
}

func TestValueRecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	v, err := Value(zap.New(core), "load", func() (int, error) {
		panic("corrupt")
	})
	assert.Zero(t, v)
	assert.ErrorContains(t, err, "load panicked: corrupt")
	assert.Equal(t, 1, logs.FilterMessage("operation panicked").Len())

	v, err = Value(nil, "count", func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}
