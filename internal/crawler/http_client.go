package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"
)

// DefaultMaxBodySize caps how much of a page is read
const DefaultMaxBodySize = 10 * 1024 * 1024

// HTTPClient fetches pages over HTTP and implements PageFetcher
type HTTPClient struct {
	client        *http.Client
	userAgent     string
	customHeaders map[string]string
	maxBodySize   int64
	retries       int
	backoff       time.Duration
}

// NewHTTPClient creates a new HTTP client whose requests each time out after timeout
func NewHTTPClient(userAgent string, timeout time.Duration) *HTTPClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &HTTPClient{
		client:        client,
		userAgent:     userAgent,
		customHeaders: make(map[string]string),
		maxBodySize:   DefaultMaxBodySize,
	}
}

// SetCustomHeaders sets custom HTTP headers
func (h *HTTPClient) SetCustomHeaders(headers map[string]string) {
	for k, v := range headers {
		h.customHeaders[k] = v
	}
}

// SetRetry enables up to retries extra attempts for retryable failures,
// waiting backoff before the first retry and doubling it after each.
func (h *HTTPClient) SetRetry(retries int, backoff time.Duration) {
	h.retries = retries
	h.backoff = backoff
}

// Fetch retrieves url, retrying as configured. Failures are *FetchError.
func (h *HTTPClient) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	delay := h.backoff
	for attempt := 1; ; attempt++ {
		result, err := h.get(ctx, url)
		if err == nil {
			result.Attempts = attempt
			return result, nil
		}

		var fetchErr *FetchError
		if attempt > h.retries || !errors.As(err, &fetchErr) || !fetchErr.Retryable() {
			return nil, err
		}

		slog.Debug("Retrying fetch", "url", url, "attempt", attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}
		delay *= 2
	}
}

// get performs a single GET request, tracking time to first byte
func (h *HTTPClient) get(ctx context.Context, url string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: ErrorKindNetwork, Err: err}
	}

	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for name, value := range h.customHeaders {
		req.Header.Set(name, value)
	}

	var firstByteTime time.Time
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			firstByteTime = time.Now()
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	startTime := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: classify(err), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &FetchError{
			URL:        url,
			Kind:       ErrorKindHTTP,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodySize))
	if err != nil {
		kind := ErrorKindRead
		if classify(err) == ErrorKindTimeout {
			kind = ErrorKindTimeout
		}
		return nil, &FetchError{URL: url, Kind: kind, Err: err}
	}

	result := &FetchResult{
		URL:          url,
		FinalURL:     resp.Request.URL.String(),
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		Body:         body,
		DownloadTime: time.Since(startTime),
	}
	if !firstByteTime.IsZero() {
		result.TTFB = firstByteTime.Sub(startTime)
	}

	return result, nil
}

// Close closes idle connections
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}

func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorKindTimeout
	}
	return ErrorKindNetwork
}
