package helpers

import (
	"fmt"
	"os"
	"sync"
	"time"

	"sjsage522/dealerworker/logger"
)

// LoggerInterface defines the interface for failure log implementations
type LoggerInterface interface {
	LogError(vendor string, err error)
	LogInfo(format string, args ...interface{})
}

// Logger appends failures to a plain-text file, one line per failure,
// so a run that under-collected data leaves a trace outside the console.
type Logger struct {
	mu        sync.Mutex
	errorFile string
}

// NewLogger creates a new logger instance
func NewLogger(errorFile string) *Logger {
	return &Logger{
		errorFile: errorFile,
	}
}

// LogError logs an error to a file with vendor name and timestamp
func (l *Logger) LogError(vendor string, err error) {
	logger.ForVendor(vendor).Error().Err(err).Msg("crawl failure")

	if l.errorFile == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		logger.ForWorker().Warn().Err(fileErr).Str("path", l.errorFile).Msg("failed to open error log")
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, vendor, err.Error())
}

// LogInfo logs an informational message
func (l *Logger) LogInfo(format string, args ...interface{}) {
	logger.ForWorker().Info().Msgf(format, args...)
}
