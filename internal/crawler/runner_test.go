package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/dealerworker/config"
	"sjsage522/dealerworker/internal"
	"sjsage522/dealerworker/internal/translator"
	"sjsage522/dealerworker/services/cache"
)

// MockLogger records failures
type MockLogger struct {
	errors []string
}

func (m *MockLogger) LogError(vendor string, err error) {
	m.errors = append(m.errors, vendor+": "+err.Error())
}

func (m *MockLogger) LogInfo(format string, args ...interface{}) {}

func newRunnerConfig(t *testing.T, endpoint string) *config.Config {
	cfg := config.LoadConfig()
	dir := t.TempDir()
	cfg.OutputDir = dir
	cfg.ProgressDir = filepath.Join(dir, ".progress")
	cfg.PaceBase = 0
	cfg.PaceJitter = 0
	cfg.RetryMaxAttempts = 1
	cfg.Vendors["lixiang"] = &config.VendorOverride{Endpoint: endpoint}
	return cfg
}

func newRunnerDeps(t *testing.T) *internal.Dependencies {
	tr, err := translator.New()
	require.NoError(t, err)
	return &internal.Dependencies{Cache: cache.NewMemoryCache(), Translator: tr}
}

func TestRunnerWritesEverySink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"provinceName":"江苏省","cityName":"南京市","countyName":"玄武区","name":"理想南京零售中心","type":"RETAIL","address":"中山路2号","telephone":"025-2"},
			{"provinceName":"江苏省","cityName":"南京市","countyName":"玄武区","name":"理想南京零售中心","type":"RETAIL","address":"中山路2号","telephone":"025-2"}]}`))
	}))
	defer server.Close()

	cfg := newRunnerConfig(t, server.URL)
	cfg.Dedup = true
	cfg.XLSXOutput = true
	cfg.SQLitePath = filepath.Join(cfg.OutputDir, "archive.db")

	failures := &MockLogger{}
	r := NewRunner(cfg, newRunnerDeps(t), failures)

	summary, err := r.Run(context.Background(), "lixiang", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Records)
	assert.Equal(t, 1, summary.Duplicates)
	assert.NotEmpty(t, summary.RunID)
	assert.Empty(t, failures.errors)

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "lixiang.csv"))
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "\ufeff品牌,省,Province"))
	assert.Contains(t, content, "理想,江苏省,Jiangsu,南京市,Nanjing,玄武区,理想南京零售中心,RETAIL,中山路2号,025-2,")

	assert.FileExists(t, filepath.Join(cfg.OutputDir, "lixiang.xlsx"))
	assert.FileExists(t, cfg.SQLitePath)
}

func TestRunnerKeepsEveryBYDFacetRow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/province", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[{"n_province_id":"32","provinceName":"江苏省"}]}`))
	})
	mux.HandleFunc("/city", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[{"n_city_id":3201,"cityName":"南京市"}]}`))
	})
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		// the same dealer is listed under both networks and both dealer types
		w.Write([]byte(`{"success":true,"data":[{"provinceName":"江苏省","cityName":"南京市","dealerName":"南京4S店","dealerAddress":"中山路1号","dealerTel":"025-1"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := newRunnerConfig(t, server.URL)
	zero := 0
	cfg.Vendors["byd"] = &config.VendorOverride{Endpoint: server.URL, PaceBaseMS: &zero, PaceJitterMS: &zero}

	r := NewRunner(cfg, newRunnerDeps(t), &MockLogger{})
	summary, err := r.Run(context.Background(), "byd", RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Records)
	assert.Equal(t, 0, summary.Duplicates)

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "byd.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\r\n")
	require.Len(t, lines, 5)
	assert.Equal(t, 2, strings.Count(string(data), `"售前经销"`))
	assert.Equal(t, 2, strings.Count(string(data), `"售后服务"`))
}

func TestRunnerReportsFailedBranches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	failures := &MockLogger{}
	r := NewRunner(newRunnerConfig(t, server.URL), newRunnerDeps(t), failures)

	summary, err := r.Run(context.Background(), "lixiang", RunOptions{})
	require.NoError(t, err)
	assert.True(t, summary.Failed())
	require.Len(t, failures.errors, 1)
	assert.Contains(t, failures.errors[0], "lixiang: dealers")
}

func TestRunnerUnknownVendor(t *testing.T) {
	r := NewRunner(config.LoadConfig(), nil, nil)
	_, err := r.Run(context.Background(), "nio", RunOptions{})
	assert.ErrorContains(t, err, "unknown vendor")
}
