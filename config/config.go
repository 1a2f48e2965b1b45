package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Output configuration
	OutputDir      string
	OutputEncoding string
	OutputQuoting  string
	FlushEvery     int
	XLSXOutput     bool
	SQLitePath     string

	// Request pacing and retry configuration
	PaceBase          time.Duration
	PaceJitter        time.Duration
	RequestTimeout    time.Duration
	RetryMaxAttempts  int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	RetryJitter       time.Duration
	SoftThrottleDelay time.Duration
	BlockTime         time.Duration
	ProxyURLs         []string

	// Crawl state
	Dedup         bool
	ProgressDir   string
	TranslatorDir string

	// Memcache configuration
	MemcacheAddr string

	// Redis configuration
	RedisAddr   string
	RedisDB     int
	RedisStream string

	// Browser configuration
	BrowserHeadless bool
	TeslaMode       string

	// Scheduling
	CrawlCron string

	ErrorLogFile    string
	VendorConfigDir string

	// Environment
	Environment string

	// Per-vendor overrides loaded from VendorConfigDir
	Vendors map[string]*VendorOverride
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	cfg := &Config{
		OutputDir:         getEnv("OUTPUT_DIR", "output"),
		OutputEncoding:    getEnv("OUTPUT_ENCODING", EncodingUTF8BOM),
		OutputQuoting:     getEnv("OUTPUT_QUOTING", QuotingMinimal),
		FlushEvery:        getEnvInt("FLUSH_EVERY", 1),
		XLSXOutput:        getEnvBool("XLSX_OUTPUT", false),
		SQLitePath:        os.Getenv("SQLITE_PATH"),
		PaceBase:          time.Duration(getEnvInt("PACE_BASE_MS", 1000)) * time.Millisecond,
		PaceJitter:        time.Duration(getEnvInt("PACE_JITTER_MS", 1000)) * time.Millisecond,
		RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 20)) * time.Second,
		RetryMaxAttempts:  getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:    time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 2000)) * time.Millisecond,
		RetryMaxDelay:     time.Duration(getEnvInt("RETRY_MAX_DELAY_MS", 30000)) * time.Millisecond,
		RetryJitter:       time.Duration(getEnvInt("RETRY_JITTER_MS", 1000)) * time.Millisecond,
		SoftThrottleDelay: time.Duration(getEnvInt("SOFT_THROTTLE_DELAY_SECONDS", 10)) * time.Second,
		BlockTime:         time.Duration(getEnvInt("BLOCK_SECONDS", 500)) * time.Second,
		ProxyURLs:         splitList(os.Getenv("PROXY_URLS")),
		Dedup:             getEnvBool("DEDUP", false),
		ProgressDir:       getEnv("PROGRESS_DIR", filepath.Join("output", ".progress")),
		TranslatorDir:     os.Getenv("TRANSLATOR_DIR"),
		MemcacheAddr:      os.Getenv("MEMCACHE_ADDR"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisStream:       getEnv("REDIS_STREAM", "dealers"),
		BrowserHeadless:   getEnvBool("BROWSER_HEADLESS", true),
		TeslaMode:         getEnv("TESLA_MODE", "browser"),
		CrawlCron:         os.Getenv("CRAWL_CRON"),
		ErrorLogFile:      getEnv("ERROR_LOG_FILE", "error.log"),
		VendorConfigDir:   getEnv("VENDOR_CONFIG_DIR", filepath.Join("config", "vendors")),
		Environment:       getEnv("ENVIRONMENT", "development"),
		Vendors:           make(map[string]*VendorOverride),
	}

	return cfg
}

// LoadVendorOverrides reads every *.yaml file in VendorConfigDir.
// A missing directory is not an error.
func (c *Config) LoadVendorOverrides() error {
	entries, err := os.ReadDir(c.VendorConfigDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(c.VendorConfigDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var override VendorOverride
		if err := yaml.Unmarshal(data, &override); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if override.Name == "" {
			override.Name = strings.TrimSuffix(entry.Name(), ".yaml")
		}

		c.Vendors[override.Name] = &override
	}

	return nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR must not be empty")
	}
	if !validEncoding(c.OutputEncoding) {
		return fmt.Errorf("unsupported OUTPUT_ENCODING %q", c.OutputEncoding)
	}
	if !validQuoting(c.OutputQuoting) {
		return fmt.Errorf("unsupported OUTPUT_QUOTING %q", c.OutputQuoting)
	}
	if c.FlushEvery < 1 {
		return fmt.Errorf("FLUSH_EVERY must be >= 1, got %d", c.FlushEvery)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be >= 1, got %d", c.RetryMaxAttempts)
	}
	if c.PaceBase < 0 || c.PaceJitter < 0 || c.RetryJitter < 0 {
		return fmt.Errorf("pace and jitter durations must not be negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if c.TeslaMode != "browser" && c.TeslaMode != "http" {
		return fmt.Errorf("TESLA_MODE must be browser or http, got %q", c.TeslaMode)
	}
	for name, v := range c.Vendors {
		if v.Encoding != "" && !validEncoding(v.Encoding) {
			return fmt.Errorf("vendor %s: unsupported encoding %q", name, v.Encoding)
		}
		if v.Quoting != "" && !validQuoting(v.Quoting) {
			return fmt.Errorf("vendor %s: unsupported quoting %q", name, v.Quoting)
		}
		if (v.PaceBaseMS != nil && *v.PaceBaseMS < 0) || (v.PaceJitterMS != nil && *v.PaceJitterMS < 0) {
			return fmt.Errorf("vendor %s: pace must not be negative", name)
		}
	}
	return nil
}

// Settings resolves the effective settings for a vendor: global values,
// then the vendor's own defaults, then the YAML override.
func (c *Config) Settings(vendor string, defaults VendorSettings) VendorSettings {
	s := VendorSettings{
		PaceBase:   c.PaceBase,
		PaceJitter: c.PaceJitter,
		Encoding:   c.OutputEncoding,
		Quoting:    c.OutputQuoting,
		FlushEvery: c.FlushEvery,
		Dedup:      c.Dedup,
	}
	s.merge(defaults)
	if o, ok := c.Vendors[vendor]; ok {
		o.apply(&s)
	}
	return s
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
