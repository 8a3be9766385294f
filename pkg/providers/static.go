package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/pressfeed/pkg/httpclient"
)

const maxPageBytes = 2 << 20 // 2 MiB

// staticFetcher loads pages with a plain HTTP GET and parses the HTML as served.
type staticFetcher struct {
	client httpclient.Client
}

// NewStaticFetcher builds a fetcher for pages that need no script execution.
func NewStaticFetcher(client httpclient.Client) PageFetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &staticFetcher{client: client}
}

func (f *staticFetcher) Strategy() string {
	return StrategyStatic
}

func (f *staticFetcher) FetchDocument(ctx context.Context, req PageRequest) (*goquery.Document, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("page url is empty")
	}
	pageURL, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	resp, err := f.client.Get(ctx, req.URL, req.Headers)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &FetchTimeoutError{URL: req.URL, Timeout: req.Timeout, Err: err}
		}
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("page %s returned status %d body: %s", req.URL, resp.StatusCode(), responseSnippet(body))
	}
	if len(body) > maxPageBytes {
		return nil, fmt.Errorf("page %s: %w (%d bytes, limit %d)", req.URL, ErrPageTooLarge, len(body), maxPageBytes)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	doc.Url = pageURL

	return doc, nil
}
