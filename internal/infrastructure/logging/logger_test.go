package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewDefaultsOutput(t *testing.T) {
	logger, err := New(Config{Level: "warn"})
	require.NoError(t, err)
	assert.NotNil(t, logger.Logger)
}

func TestRedactedNeverCarriesValue(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := (&Logger{Logger: zap.New(core)}).Named("holder")

	logger.Info("key saved", Redacted("key", []byte("super-secret")), Element("frame-1"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "holder", entry.LoggerName)

	fields := entry.ContextMap()
	assert.Equal(t, int64(12), fields["key_len"])
	assert.Equal(t, "frame-1", fields["element_id"])
	for _, v := range fields {
		assert.NotEqual(t, "super-secret", v)
	}
}
