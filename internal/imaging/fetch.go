package imaging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultFetchTimeout = 15 * time.Second

// Fetched is a downloaded payload and the Content-Type the server declared.
type Fetched struct {
	Data        []byte
	ContentType string
}

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Fetched, error)
}

type FetcherFunc func(ctx context.Context, rawURL string) (*Fetched, error)

func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) (*Fetched, error) {
	return f(ctx, rawURL)
}

// StatusError is a download that got a non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// HTTPFetcher downloads images with a single GET. It never retries.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}, maxBytes: maxBytes}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, ErrTooLarge
	}
	return &Fetched{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}
