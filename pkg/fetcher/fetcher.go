package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch HTML from %s, status code: %d", e.URL, e.StatusCode)
}

// Page is a fetched response body, already decoded to UTF-8.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a fetcher with the given client timeout. A zero timeout
// waits as long as the server takes.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// GetPage issues a single GET. The status code is populated on the returned
// Page even when the error is a *StatusError, so callers can record it.
func (f *Fetcher) GetPage(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	page := &Page{URL: url, StatusCode: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return page, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return page, fmt.Errorf("failed to decode response body: %w", err)
	}

	page.Body, err = io.ReadAll(body)
	if err != nil {
		return page, fmt.Errorf("failed to read response body: %w", err)
	}
	return page, nil
}
