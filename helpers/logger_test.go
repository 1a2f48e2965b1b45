package helpers

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	// Create a temporary file for testing
	tmpFile := filepath.Join(t.TempDir(), "error.log")

	// Create a logger
	logger := NewLogger(tmpFile)

	// Log an error
	logger.LogError("byd", errors.New("province list failed"))
	logger.LogError("tuhu", errors.New("page 3 failed"))

	// Check that the file was created and contains the errors
	data, err := os.ReadFile(tmpFile)
	assert.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[byd] province list failed")
	assert.Contains(t, lines[1], "[tuhu] page 3 failed")

	// Info messages go to the structured logger, not the file
	logger.LogInfo("Test info message: %s", "hello")
	data, _ = os.ReadFile(tmpFile)
	assert.NotContains(t, string(data), "hello")
}

func TestLoggerWithoutFile(t *testing.T) {
	logger := NewLogger("")
	assert.NotPanics(t, func() {
		logger.LogError("volvo", errors.New("boom"))
	})
}
