package tagclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/arawak/toolshelf/internal/apperr"
)

const (
	tagsPath     = "/api/tags"
	apiKeyHeader = "X-Api-Key"
)

// HTTPBackend talks to the tag collection endpoint. Listing is idempotent and
// retried on transient failures; creation is sent exactly once.
type HTTPBackend struct {
	baseURL string
	apiKey  string
	list    *retryablehttp.Client
	create  *retryablehttp.Client
}

type HTTPOption func(*HTTPBackend)

func WithAPIKey(key string) HTTPOption {
	return func(b *HTTPBackend) { b.apiKey = key }
}

// WithHTTPClient swaps the underlying transport, e.g. for proxies or tests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(b *HTTPBackend) {
		b.list.HTTPClient = c
		b.create.HTTPClient = c
	}
}

// WithListRetries sets how many times a failed listing is retried.
func WithListRetries(n int, waitMin, waitMax time.Duration) HTTPOption {
	return func(b *HTTPBackend) {
		b.list.RetryMax = n
		b.list.RetryWaitMin = waitMin
		b.list.RetryWaitMax = waitMax
	}
}

func NewHTTPBackend(baseURL string, logger *slog.Logger, opts ...HTTPOption) *HTTPBackend {
	list := retryablehttp.NewClient()
	list.RetryMax = 3
	list.RetryWaitMin = 200 * time.Millisecond
	list.RetryWaitMax = 2 * time.Second
	list.ErrorHandler = retryablehttp.PassthroughErrorHandler
	list.Logger = nil

	create := retryablehttp.NewClient()
	create.RetryMax = 0
	create.CheckRetry = neverRetry
	create.Logger = nil

	if logger != nil {
		list.Logger = logger
		create.Logger = logger
	}

	b := &HTTPBackend{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		list:    list,
		create:  create,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func neverRetry(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, nil
}

type messageBody struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

func (b *HTTPBackend) ListTags(ctx context.Context) ([]string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+tagsPath, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build list request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.list.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "Could not load tags.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Wrap(apperr.KindTransport, "Could not load tags.", fmt.Errorf("unexpected status %s", resp.Status))
	}
	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "Could not load tags.", fmt.Errorf("decode tag list: %w", err))
	}
	return names, nil
}

func (b *HTTPBackend) CreateTag(ctx context.Context, name string) (Created, error) {
	payload, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return Created{}, apperr.Wrap(apperr.KindInternal, "encode tag", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+tagsPath, payload)
	if err != nil {
		return Created{}, apperr.Wrap(apperr.KindInternal, "build create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if b.apiKey != "" {
		req.Header.Set(apiKeyHeader, b.apiKey)
	}

	resp, err := b.create.Do(req)
	if err != nil {
		return Created{}, apperr.Wrap(apperr.KindTransport, "Could not reach the tag service.", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body messageBody
	_ = json.Unmarshal(raw, &body)
	if body.Name == "" {
		body.Name = name
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		return Created{Name: body.Name, Status: StatusCreated}, nil
	case http.StatusOK:
		return Created{Name: body.Name, Status: StatusExisted}, nil
	case http.StatusConflict:
		return Created{Name: body.Name, Status: StatusConflict}, nil
	case http.StatusBadRequest:
		return Created{}, apperr.New(apperr.KindValidation, orDefault(body.Message, "Tag name is required."))
	case http.StatusUnauthorized, http.StatusForbidden:
		return Created{}, apperr.New(apperr.KindAuth, orDefault(body.Message, "Unauthorized"))
	default:
		return Created{}, apperr.Wrap(apperr.KindInternal, orDefault(body.Message, "Internal server error"), fmt.Errorf("unexpected status %s", resp.Status))
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
