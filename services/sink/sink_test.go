package sink

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sjsage522/dealerworker/services/publisher"
)

// MockPublisher implements the publisher.Publisher interface for testing
type MockPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
	trimmed  int
}

var _ publisher.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{messages: make(map[string][][]byte)}
}

func (m *MockPublisher) Publish(vendor string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[vendor] = append(m.messages[vendor], append([]byte(nil), message...))
	return nil
}

func (m *MockPublisher) TrimStreams() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trimmed++
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

type recordingSink struct {
	rows     [][]string
	pending  int
	writeErr error
	closed   bool
}

func (r *recordingSink) Open(resume bool) error { return nil }
func (r *recordingSink) Write(row []string) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	r.rows = append(r.rows, row)
	return nil
}
func (r *recordingSink) Flush() error { return nil }
func (r *recordingSink) Pending() int { return r.pending }
func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

func TestPublisherSink(t *testing.T) {
	pub := NewMockPublisher()
	s := NewPublisherSink(pub, "byd", []string{"省", "店名"})

	require.NoError(t, s.Open(false))
	require.NoError(t, s.Write([]string{"江苏省", "南京店"}))
	require.NoError(t, s.Close())

	require.Len(t, pub.messages["byd"], 1)
	var got map[string]string
	require.NoError(t, json.Unmarshal(pub.messages["byd"][0], &got))
	assert.Equal(t, map[string]string{"省": "江苏省", "店名": "南京店"}, got)
	assert.Equal(t, 1, pub.trimmed)
}

func TestMultiSink(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{writeErr: errors.New("disk full")}
	m := NewMultiSink(a, nil, b)
	assert.Equal(t, 2, m.Len())

	a.pending, b.pending = 2, 3
	assert.Equal(t, 5, m.Pending())

	err := m.Write([]string{"x"})
	assert.EqualError(t, err, "disk full")
	// The healthy sink still received the row
	assert.Len(t, a.rows, 1)

	require.NoError(t, m.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestXLSXSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "byd.xlsx")
	s := NewXLSXSink(path, []string{"省", "店名"})

	require.NoError(t, s.Open(false))
	require.NoError(t, s.Write([]string{"江苏省", "南京店"}))
	require.NoError(t, s.Close())

	resumed := NewXLSXSink(path, []string{"省", "店名"})
	require.NoError(t, resumed.Open(true))
	require.NoError(t, resumed.Write([]string{"浙江省", "杭州店"}))
	require.NoError(t, resumed.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"省", "店名"}, {"江苏省", "南京店"}, {"浙江省", "杭州店"}}, rows)
}

func TestSQLiteSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	s, err := NewSQLiteSink(path, "run-1", "byd", []string{"省", "店名"})
	require.NoError(t, err)

	require.NoError(t, s.Open(false))
	require.NoError(t, s.Write([]string{"江苏省", "南京店"}))
	require.NoError(t, s.Write([]string{"江苏省", "鼓楼店"}))

	n, err := s.Count("run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var record string
	require.NoError(t, s.db.QueryRow(`SELECT record FROM dealers WHERE run_id = ? AND seq = 2`, "run-1").Scan(&record))
	assert.JSONEq(t, `{"省":"江苏省","店名":"鼓楼店"}`, record)

	n, err = s.Count("run-2")
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, s.Close())
}
