package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const maxBodySize = 10 << 20

var (
	ErrHTTPStatus   = errors.New("HTTP error")
	ErrEmptyBody    = errors.New("empty response body")
	ErrEmptyContent = errors.New("no content extracted")
)

// BrowserHeaders is sent with every page request. Some publishers serve
// stripped pages or 403s to non-browser agents.
var BrowserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"DNT":                       "1",
	"Upgrade-Insecure-Requests": "1",
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Page struct {
	URL  *url.URL
	Body []byte
}

// PageFetcher performs GET requests with the browser header set and a per-call timeout.
type PageFetcher struct {
	client HTTPClient
}

func NewPageFetcher(client HTTPClient) *PageFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &PageFetcher{client: client}
}

func (f *PageFetcher) Fetch(ctx context.Context, rawURL string, timeout time.Duration) (*Page, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for name, value := range BrowserHeaders {
		req.Header.Set(name, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d %s", ErrHTTPStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}

	pageURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		pageURL = resp.Request.URL
	}

	return &Page{URL: pageURL, Body: body}, nil
}
