// Package fetcher is the single network ingress for the application.
//
// Every outbound HTTP request goes through Fetcher.Fetch, which layers a
// disk cache, a per-attempt timeout and retry with exponential backoff on
// top of a plain HTTP client. Sources and enrichers never talk to the
// network directly.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"freegames_bot/internal/cache"
)

// Browser-like defaults; several storefront APIs reject requests without
// them. Accept-Encoding is left to the transport so gzip stays transparent.
var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.9",
}

const maxBodySize = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes one logical fetch. Method defaults to GET. Header
// entries override the built-in browser defaults. Structured marks the
// response as JSON: structured payloads are validated before they are
// served from cache or returned, so a truncated or HTML error body is
// never handed to a decoder. TTL overrides the fetcher-wide cache TTL
// when positive.
type Request struct {
	Method     string
	URL        string
	Header     map[string]string
	Body       []byte
	Structured bool
	TTL        time.Duration
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// Temporary reports whether the status is worth retrying. 403 is included
// because several storefronts use it for rate limiting.
func (e *StatusError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

var errInvalidPayload = errors.New("invalid structured payload")

// Fetcher downloads HTTP resources with caching and retry.
type Fetcher struct {
	client HTTPClient
	cache  *cache.Store
	log    *slog.Logger

	maxRetries   int
	initialDelay time.Duration
	timeout      time.Duration
	cacheTTL     time.Duration

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// New creates a Fetcher with the given HTTP client and cache store.
func New(client HTTPClient, store *cache.Store, log *slog.Logger) *Fetcher {
	return &Fetcher{
		client:       client,
		cache:        store,
		log:          log,
		maxRetries:   3,
		initialDelay: 2 * time.Second,
		timeout:      25 * time.Second,
		cacheTTL:     time.Hour,
		sleep:        sleepContext,
		jitter:       func() time.Duration { return rand.N(time.Second) },
	}
}

// SetRetryPolicy overrides the total attempt count and the base backoff
// delay. maxRetries counts all attempts, not just the retries after the
// first one.
func (f *Fetcher) SetRetryPolicy(maxRetries int, initialDelay time.Duration) {
	if maxRetries > 0 {
		f.maxRetries = maxRetries
	}
	if initialDelay > 0 {
		f.initialDelay = initialDelay
	}
}

// SetTimeout overrides the per-attempt timeout.
func (f *Fetcher) SetTimeout(d time.Duration) {
	if d > 0 {
		f.timeout = d
	}
}

// SetCacheTTL overrides the default cache TTL for requests that do not
// carry their own.
func (f *Fetcher) SetCacheTTL(d time.Duration) {
	if d > 0 {
		f.cacheTTL = d
	}
}

// Fetch returns the response body for req, serving from cache when a fresh
// entry exists. On a miss it performs up to maxRetries attempts, backing
// off exponentially between them, and caches the body on success. All
// failures come back as errors; Fetch never panics on bad input.
func (f *Fetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	ttl := f.cacheTTL
	if req.TTL > 0 {
		ttl = req.TTL
	}

	fp := cache.Fingerprint(method, req.URL, req.Body)
	if data, ok := f.cache.Get(fp, ttl); ok {
		if !req.Structured || json.Valid(data) {
			return data, nil
		}
		// A corrupt entry is a miss: evict it and go to the network.
		f.log.Warn("evicting corrupt cache entry", "url", req.URL)
		if err := f.cache.Remove(fp); err != nil {
			f.log.Warn("failed to evict cache entry", "url", req.URL, "error", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		body, err := f.doAttempt(ctx, method, req)
		if err == nil {
			if err := f.cache.Put(fp, body); err != nil {
				f.log.Warn("failed to cache response", "url", req.URL, "error", err)
			}
			return body, nil
		}
		lastErr = err

		if !retryable(err) || attempt == f.maxRetries-1 {
			break
		}
		delay := f.initialDelay*(1<<attempt) + f.jitter()
		f.log.Debug("retrying fetch", "url", req.URL, "attempt", attempt+1, "delay", delay, "error", err)
		if err := f.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("fetch %s: %w", req.URL, lastErr)
}

func (f *Fetcher) doAttempt(ctx context.Context, method string, req Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: req.URL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if req.Structured && !json.Valid(body) {
		return nil, errInvalidPayload
	}
	return body, nil
}

// retryable classifies an attempt error. Status errors retry only on the
// temporary set; a syntactically broken payload will not get better on a
// second try; anything else (transport errors, timeouts) is assumed
// transient.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	if errors.Is(err, errInvalidPayload) {
		return false
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
