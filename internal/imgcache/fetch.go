package imgcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	userAgent    = "coinfly/1.0 (+image cache)"
	acceptHeader = "image/*,*/*;q=0.8"
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d for %s", e.Code, e.URL)
}

// SizeError reports a body outside the accepted byte bounds. Bodies below
// Min are tracking pixels or placeholders; bodies above Max are not worth
// caching.
type SizeError struct {
	Size, Min, Max int64
}

func (e *SizeError) Error() string {
	if e.Size < e.Min {
		return fmt.Sprintf("body of %d bytes below minimum %d", e.Size, e.Min)
	}
	return fmt.Sprintf("body of %d bytes above maximum %d", e.Size, e.Max)
}

// Fetcher performs a single bounded image download. It never retries: a
// failed image is simply skipped for this run.
type Fetcher struct {
	client   *http.Client
	minBytes int64
	maxBytes int64
}

func NewFetcher(timeout time.Duration, minBytes, maxBytes int64) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		minBytes: minBytes,
		maxBytes: maxBytes,
	}
}

// Fetch downloads url and returns the body and response content type.
// Redirects are followed. Errors are typed: *StatusError for a bad status,
// *SizeError for out-of-bounds bodies, wrapped transport errors otherwise.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &StatusError{Code: resp.StatusCode, URL: url}
	}

	// Read one byte past the cap so an oversized body is detected without
	// ever buffering the whole thing.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", url, err)
	}

	size := int64(len(body))
	if size > f.maxBytes {
		return nil, "", &SizeError{Size: size, Min: f.minBytes, Max: f.maxBytes}
	}
	if size < f.minBytes {
		return nil, "", &SizeError{Size: size, Min: f.minBytes, Max: f.maxBytes}
	}

	return body, resp.Header.Get("Content-Type"), nil
}
