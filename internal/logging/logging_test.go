package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	logger, err := New("info", "json")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNew_ConsoleFormat(t *testing.T) {
	logger, err := New("debug", "console")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("loud", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNew_InvalidFormat(t *testing.T) {
	_, err := New("info", "carrier-pigeon")
	assert.Error(t, err)
}
