package config

import "errors"

var (
	// ErrInvalidDepth is returned when max_depth is not greater than 0
	ErrInvalidDepth = errors.New("max_depth must be greater than 0")
	// ErrInvalidWorkers is returned when max_workers is not greater than 0
	ErrInvalidWorkers = errors.New("max_workers must be greater than 0")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrInvalidRetries is returned when fetch_retries is negative
	ErrInvalidRetries = errors.New("fetch_retries cannot be negative")
	// ErrInvalidBackoff is returned when retries are enabled without a positive backoff
	ErrInvalidBackoff = errors.New("retry_backoff must be greater than 0 when fetch_retries is set")
	// ErrInvalidArticlePrefix is returned when article_prefix is not an absolute path
	ErrInvalidArticlePrefix = errors.New("article_prefix must start with '/'")
	// ErrInvalidHeader is returned when a header is not in "Name: Value" form
	ErrInvalidHeader = errors.New("headers must be in 'Name: Value' format")
	// ErrEmptyDatabasePath is returned when the sqlite store has no path
	ErrEmptyDatabasePath = errors.New("store.path cannot be empty")
	// ErrEmptyDSN is returned when the postgres store has no connection string
	ErrEmptyDSN = errors.New("store.dsn cannot be empty for the postgres driver")
	// ErrUnknownDriver is returned for an unsupported store driver
	ErrUnknownDriver = errors.New("store.driver must be 'sqlite' or 'postgres'")
)
