package config

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxDepth != 6 {
		t.Errorf("Expected max depth 6, got %d", cfg.MaxDepth)
	}

	if cfg.MaxWorkers != 50 {
		t.Errorf("Expected max workers 50, got %d", cfg.MaxWorkers)
	}

	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("Expected request timeout 5s, got %v", cfg.RequestTimeout)
	}

	if cfg.FetchRetries != 0 {
		t.Errorf("Expected no fetch retries by default, got %d", cfg.FetchRetries)
	}

	if cfg.ArticlePrefix != "/wiki/" {
		t.Errorf("Expected article prefix '/wiki/', got %s", cfg.ArticlePrefix)
	}

	if cfg.NamespaceSeparator != ":" {
		t.Errorf("Expected namespace separator ':', got %s", cfg.NamespaceSeparator)
	}

	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("Expected sqlite driver, got %s", cfg.Store.Driver)
	}

	if cfg.Store.Path != "./links.db" {
		t.Errorf("Expected database path './links.db', got %s", cfg.Store.Path)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *CrawlConfig)
		wantErr error
	}{
		{
			name:    "valid config",
			modify:  func(c *CrawlConfig) {},
			wantErr: nil,
		},
		{
			name:    "invalid depth",
			modify:  func(c *CrawlConfig) { c.MaxDepth = 0 },
			wantErr: ErrInvalidDepth,
		},
		{
			name:    "invalid workers",
			modify:  func(c *CrawlConfig) { c.MaxWorkers = -1 },
			wantErr: ErrInvalidWorkers,
		},
		{
			name:    "invalid timeout",
			modify:  func(c *CrawlConfig) { c.RequestTimeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "negative retries",
			modify:  func(c *CrawlConfig) { c.FetchRetries = -1 },
			wantErr: ErrInvalidRetries,
		},
		{
			name: "retries without backoff",
			modify: func(c *CrawlConfig) {
				c.FetchRetries = 2
				c.RetryBackoff = 0
			},
			wantErr: ErrInvalidBackoff,
		},
		{
			name:    "relative article prefix",
			modify:  func(c *CrawlConfig) { c.ArticlePrefix = "wiki/" },
			wantErr: ErrInvalidArticlePrefix,
		},
		{
			name:    "malformed header",
			modify:  func(c *CrawlConfig) { c.Headers = []string{"X-Broken"} },
			wantErr: ErrInvalidHeader,
		},
		{
			name:    "empty database path",
			modify:  func(c *CrawlConfig) { c.Store.Path = "" },
			wantErr: ErrEmptyDatabasePath,
		},
		{
			name:    "postgres without dsn",
			modify:  func(c *CrawlConfig) { c.Store.Driver = DriverPostgres },
			wantErr: ErrEmptyDSN,
		},
		{
			name: "postgres with dsn",
			modify: func(c *CrawlConfig) {
				c.Store.Driver = DriverPostgres
				c.Store.DSN = "postgres://localhost/wikicrawl?sslmode=disable"
			},
			wantErr: nil,
		},
		{
			name:    "unknown driver",
			modify:  func(c *CrawlConfig) { c.Store.Driver = "bolt" },
			wantErr: ErrUnknownDriver,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParsedHeaders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Headers = []string{
		"From: crawler@example.com",
		"X-Trace:  abc:def ",
		"broken",
		"Empty:",
	}

	headers := cfg.ParsedHeaders()

	if len(headers) != 2 {
		t.Fatalf("Expected 2 headers, got %d: %v", len(headers), headers)
	}

	if headers["From"] != "crawler@example.com" {
		t.Errorf("Unexpected From header: %q", headers["From"])
	}

	if headers["X-Trace"] != "abc:def" {
		t.Errorf("Expected value after the first colon to be kept, got %q", headers["X-Trace"])
	}
}
