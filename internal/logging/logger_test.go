package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger("loud")
	assert.Error(t, err)
}

func TestWithWorkspace(t *testing.T) {
	logger, err := NewLogger("info")
	require.NoError(t, err)

	scoped := logger.WithWorkspace("alice", "notes")
	assert.NotNil(t, scoped)
}
