package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPFetcher implements ports.Fetcher using standard HTTP.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher for small resources such as thumbnails.
// Responses larger than maxBytes are truncated; zero means no limit.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Download fetches the resource at resourceURL.
func (d *HTTPFetcher) Download(ctx context.Context, resourceURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", resourceURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if d.maxBytes > 0 {
		return limitedBody{Reader: io.LimitReader(resp.Body, d.maxBytes), Closer: resp.Body}, nil
	}
	return resp.Body, nil
}

type limitedBody struct {
	io.Reader
	io.Closer
}
