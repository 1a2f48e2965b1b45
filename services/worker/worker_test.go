package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/dealerworker/helpers"
	"sjsage522/dealerworker/internal/crawler"
)

// MockRunner records the vendors it was asked to run
type MockRunner struct {
	mu     sync.Mutex
	calls  []string
	errs   map[string]error
	onCall func(name string)
}

var _ VendorRunner = (*MockRunner)(nil)

func (m *MockRunner) Run(ctx context.Context, name string, opts crawler.RunOptions) (*crawler.Summary, error) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	onCall := m.onCall
	m.mu.Unlock()

	if onCall != nil {
		onCall(name)
	}
	return &crawler.Summary{Vendor: name, Records: 1}, m.errs[name]
}

func (m *MockRunner) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockLogger implements the helpers.LoggerInterface for testing
type MockLogger struct {
	mu     sync.Mutex
	errors []string
	infos  []string
}

var _ helpers.LoggerInterface = (*MockLogger)(nil)

func NewMockLogger() *MockLogger {
	return &MockLogger{
		errors: make([]string, 0),
		infos:  make([]string, 0),
	}
}

func (m *MockLogger) LogError(vendor string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, vendor+": "+err.Error())
}

func (m *MockLogger) LogInfo(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, fmt.Sprintf(format, args...))
}

func TestRunOnceRunsVendorsInOrder(t *testing.T) {
	runner := &MockRunner{}
	mockLogger := NewMockLogger()

	w := NewWorker(runner, []string{"byd", "tuhu", "tesla"}, crawler.RunOptions{}, mockLogger)
	summaries, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"byd", "tuhu", "tesla"}, runner.Calls())
	require.Len(t, summaries, 3)
	assert.Equal(t, "tesla", summaries[2].Vendor)
	assert.Empty(t, mockLogger.errors)
	assert.Len(t, mockLogger.infos, 1)
}

func TestRunOnceContinuesAfterFailure(t *testing.T) {
	runner := &MockRunner{errs: map[string]error{"tuhu": errors.New("sink broken")}}
	mockLogger := NewMockLogger()

	w := NewWorker(runner, []string{"byd", "tuhu", "tesla"}, crawler.RunOptions{}, mockLogger)
	summaries, err := w.RunOnce(context.Background())
	assert.EqualError(t, err, "1 of 3 vendors failed")
	assert.Len(t, summaries, 3)
	assert.Equal(t, []string{"tuhu: sink broken"}, mockLogger.errors)
}

func TestRunOnceStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &MockRunner{onCall: func(name string) { cancel() }}
	w := NewWorker(runner, []string{"byd", "tuhu"}, crawler.RunOptions{}, NewMockLogger())

	_, err := w.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"byd"}, runner.Calls())
}

func TestStartRunsOnSchedule(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runner := &MockRunner{onCall: func(name string) { cancel() }}
	w := NewWorker(runner, []string{"michelin"}, crawler.RunOptions{Resume: true}, NewMockLogger())

	require.NoError(t, w.Start(ctx, "@every 1s"))
	assert.Equal(t, []string{"michelin"}, runner.Calls())
}

func TestStartRejectsInvalidCron(t *testing.T) {
	w := NewWorker(&MockRunner{}, []string{"byd"}, crawler.RunOptions{}, NewMockLogger())
	err := w.Start(context.Background(), "every tuesday")
	assert.ErrorContains(t, err, "invalid cron expression")
}
