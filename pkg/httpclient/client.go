package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultUserAgent identifies pressfeed to upstream sites.
const DefaultUserAgent = "Mozilla/5.0 (compatible; pressfeed/1.0; +https://github.com/Adda-Baaj/pressfeed)"

// Client is the minimal HTTP surface used by fetchers, enrichers and publishers.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error)
	Do(ctx context.Context, method, url string, body any, headers map[string]string) (*resty.Response, error)
}

// Option customizes the underlying resty client.
type Option func(*resty.Client)

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *resty.Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.SetHeader("User-Agent", ua)
		}
	}
}

type restyClient struct {
	c *resty.Client
}

// NewRestyClient returns a resty-backed Client with the given request timeout.
// Retries are disabled; callers decide what a failure means.
func NewRestyClient(timeout time.Duration, opts ...Option) Client {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", DefaultUserAgent)
	for _, opt := range opts {
		opt(c)
	}
	return &restyClient{c: c}
}

// Get performs a GET request with the provided headers.
func (r *restyClient) Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error) {
	return r.Do(ctx, http.MethodGet, url, nil, headers)
}

// Do performs an arbitrary request. Non-2xx statuses are not errors; inspect the response.
func (r *restyClient) Do(ctx context.Context, method, url string, body any, headers map[string]string) (*resty.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req := r.c.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(strings.ToUpper(method), url)
	if err != nil {
		return resp, fmt.Errorf("%s %s: %w", strings.ToUpper(method), url, err)
	}
	return resp, nil
}
