// Package config provides configuration management for the crawler.
// It defines configuration structures and default values for crawling parameters.
package config

import (
	"strings"
	"time"
)

// Supported link store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StoreConfig selects and configures the durable link store.
// It is handed to the storage package explicitly; nothing about the store is process-global.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // "sqlite" or "postgres"
	Path   string `mapstructure:"path" yaml:"path"`     // SQLite database file
	DSN    string `mapstructure:"dsn" yaml:"dsn"`       // PostgreSQL connection string
}

// LogConfig holds logging output settings
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`             // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"`           // text or json
	File       string `mapstructure:"file" yaml:"file"`               // Optional log file, rotated
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`       // MB before rotation
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"` // Rotated files kept
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`         // Days rotated files are kept
	Compress   bool   `mapstructure:"compress" yaml:"compress"`       // Gzip rotated files
}

// CrawlConfig holds crawler configuration
type CrawlConfig struct {
	// BFS parameters
	MaxDepth       int           `mapstructure:"max_depth" yaml:"max_depth"`             // Number of BFS levels
	MaxWorkers     int           `mapstructure:"max_workers" yaml:"max_workers"`         // Fetch concurrency cap
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // Per-fetch timeout
	FetchRetries   int           `mapstructure:"fetch_retries" yaml:"fetch_retries"`     // Extra attempts per fetch (0=none)
	RetryBackoff   time.Duration `mapstructure:"retry_backoff" yaml:"retry_backoff"`     // Initial retry delay, doubled per attempt

	// HTTP
	UserAgent string   `mapstructure:"user_agent" yaml:"user_agent"` // HTTP User-Agent header
	Headers   []string `mapstructure:"headers" yaml:"headers"`       // Extra headers in "Name: Value" form

	// Article scoping
	ArticlePrefix      string `mapstructure:"article_prefix" yaml:"article_prefix"`           // Path prefix of the article namespace
	NamespaceSeparator string `mapstructure:"namespace_separator" yaml:"namespace_separator"` // Marks non-article pages

	// Terminal progress bar per level
	Progress bool `mapstructure:"progress" yaml:"progress"`

	Store StoreConfig `mapstructure:"store" yaml:"store"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *CrawlConfig {
	return &CrawlConfig{
		MaxDepth:           6,
		MaxWorkers:         50,
		RequestTimeout:     5 * time.Second,
		FetchRetries:       0,
		RetryBackoff:       500 * time.Millisecond,
		UserAgent:          "wikicrawl/1.0",
		ArticlePrefix:      "/wiki/",
		NamespaceSeparator: ":",
		Store: StoreConfig{
			Driver: DriverSQLite,
			Path:   "./links.db",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
		},
	}
}

// Validate checks if the configuration is valid
func (c *CrawlConfig) Validate() error {
	if c.MaxDepth <= 0 {
		return ErrInvalidDepth
	}

	if c.MaxWorkers <= 0 {
		return ErrInvalidWorkers
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.FetchRetries < 0 {
		return ErrInvalidRetries
	}

	if c.FetchRetries > 0 && c.RetryBackoff <= 0 {
		return ErrInvalidBackoff
	}

	if !strings.HasPrefix(c.ArticlePrefix, "/") {
		return ErrInvalidArticlePrefix
	}

	for _, header := range c.Headers {
		name, value, ok := strings.Cut(header, ":")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(value) == "" {
			return ErrInvalidHeader
		}
	}

	return c.Store.Validate()
}

// Validate checks the store selection
func (s StoreConfig) Validate() error {
	switch s.Driver {
	case DriverSQLite:
		if s.Path == "" {
			return ErrEmptyDatabasePath
		}
	case DriverPostgres:
		if s.DSN == "" {
			return ErrEmptyDSN
		}
	default:
		return ErrUnknownDriver
	}
	return nil
}

// ParsedHeaders returns the configured headers as a name/value map.
// Malformed entries are skipped; Validate reports them.
func (c *CrawlConfig) ParsedHeaders() map[string]string {
	headers := make(map[string]string, len(c.Headers))
	for _, header := range c.Headers {
		name, value, ok := strings.Cut(header, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		headers[name] = value
	}
	return headers
}
