package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/dealerworker/internal/crawler"
	"sjsage522/dealerworker/logger"
)

const lixiangResponse = `{"data":[
	{"provinceName":"江苏省","cityName":"南京市","countyName":"玄武区","name":"理想南京零售中心","type":"RETAIL","address":"中山路2号","telephone":"025-2"},
	{"provinceName":"上海市","cityName":"上海市","countyName":"浦东新区","name":"理想上海交付中心","type":"DELIVER","address":"张江路1号","telephone":"021-1"}]}`

// setupEnvironment points every output of the binary at a temp directory
// and the lixiang vendor at server.
func setupEnvironment(t *testing.T, endpoint string) string {
	t.Helper()
	logger.Init()

	dir := t.TempDir()
	vendorDir := filepath.Join(dir, "vendors")
	require.NoError(t, os.MkdirAll(vendorDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vendorDir, "lixiang.yaml"),
		[]byte("endpoint: "+endpoint+"\npace_base_ms: 1\n"), 0o644))

	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "output"))
	t.Setenv("PROGRESS_DIR", filepath.Join(dir, "progress"))
	t.Setenv("ERROR_LOG_FILE", filepath.Join(dir, "error.log"))
	t.Setenv("VENDOR_CONFIG_DIR", vendorDir)
	t.Setenv("PACE_BASE_MS", "0")
	t.Setenv("PACE_JITTER_MS", "0")
	t.Setenv("RETRY_MAX_ATTEMPTS", "1")
	t.Setenv("MEMCACHE_ADDR", "")
	t.Setenv("REDIS_ADDR", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	crawlResume, crawlStrict, scheduleCron = false, false, ""
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCrawlCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(lixiangResponse))
	}))
	defer server.Close()
	dir := setupEnvironment(t, server.URL)

	out, err := execute(t, "crawl", "lixiang")
	require.NoError(t, err)

	var summaries []crawler.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "lixiang", summaries[0].Vendor)
	assert.Equal(t, 2, summaries[0].Records)

	data, err := os.ReadFile(filepath.Join(dir, "output", "lixiang.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "理想,上海市,Shanghai,上海市,Shanghai,浦东新区,理想上海交付中心,DELIVER")
}

func TestCrawlCommandStrict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()
	dir := setupEnvironment(t, server.URL)

	_, err := execute(t, "crawl", "lixiang")
	assert.NoError(t, err)

	_, err = execute(t, "crawl", "--strict", "lixiang")
	assert.ErrorContains(t, err, "lixiang: 1 branches skipped")

	failures, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(failures), "lixiang")
}

func TestCrawlCommandUnknownVendor(t *testing.T) {
	setupEnvironment(t, "http://127.0.0.1:1")
	_, err := execute(t, "crawl", "nio")
	assert.ErrorContains(t, err, `unknown vendor "nio"`)
}

func TestListCommand(t *testing.T) {
	setupEnvironment(t, "http://127.0.0.1:1")
	out, err := execute(t, "list")
	require.NoError(t, err)
	for _, name := range crawler.NewRegistry().Names() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "utf-8-bom")
}

func TestTranslateCommand(t *testing.T) {
	setupEnvironment(t, "http://127.0.0.1:1")
	out, err := execute(t, "translate", "江苏省", "南京市")
	require.NoError(t, err)
	assert.Contains(t, out, "Jiangsu")
	assert.Contains(t, out, "Nanjing")
}

func TestScheduleCommandNeedsCron(t *testing.T) {
	setupEnvironment(t, "http://127.0.0.1:1")
	t.Setenv("CRAWL_CRON", "")
	_, err := execute(t, "schedule", "byd")
	assert.ErrorContains(t, err, "no schedule")
}
