package sheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxBytes bounds how much of an export is read (10MB).
const DefaultMaxBytes = 10 * 1024 * 1024

// DefaultTimeout is the HTTP client timeout used when none is supplied.
const DefaultTimeout = 30 * time.Second

// ErrTooLarge is wrapped by TransportError when an export exceeds the byte limit.
var ErrTooLarge = errors.New("export exceeds size limit")

// Source returns the raw bytes of an export.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// TransportError reports a failed fetch: a network error or a non-2xx status.
type TransportError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sheet fetch failed: %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("sheet fetch failed: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Fetcher downloads an export from a fixed URL over HTTP.
type Fetcher struct {
	url      string
	client   *http.Client
	maxBytes int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets the timeout of the default client.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.client = &http.Client{Timeout: d}
		}
	}
}

// WithMaxBytes limits the accepted response size.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// NewFetcher creates a Fetcher for url.
func NewFetcher(url string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		url:      url,
		client:   &http.Client{Timeout: DefaultTimeout},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL returns the export location.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch implements Source. Any failure is returned as *TransportError.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &TransportError{URL: f.url, Err: err}
	}
	req.Header.Set("Accept", "text/csv, application/vnd.openxmlformats-officedocument.spreadsheetml.sheet;q=0.9, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: f.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Drain a little so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &TransportError{URL: f.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &TransportError{URL: f.url, Err: err}
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &TransportError{URL: f.url, Err: ErrTooLarge}
	}
	return body, nil
}
