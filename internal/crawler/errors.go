package crawler

import (
	"fmt"
)

// Fetch error kinds
const (
	ErrorKindTimeout = "timeout"
	ErrorKindNetwork = "network_error"
	ErrorKindHTTP    = "http_error"
	ErrorKindRead    = "read_error"
)

// FetchError reports a failed fetch of one URL. It is never fatal to a crawl.
type FetchError struct {
	URL        string
	Kind       string
	StatusCode int // Set for http_error
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == ErrorKindHTTP {
		return fmt.Sprintf("fetch %s: %s: status %d", e.URL, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case ErrorKindTimeout, ErrorKindNetwork, ErrorKindRead:
		return true
	case ErrorKindHTTP:
		return e.StatusCode == 429 || e.StatusCode >= 500
	}
	return false
}

// StoreError reports a LinkStore failure. Dedup can no longer be guaranteed,
// so it aborts the crawl.
type StoreError struct {
	Op  string // "contains" or "insert"
	URL string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("link store %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
