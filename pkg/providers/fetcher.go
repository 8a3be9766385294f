package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/pressfeed/pkg/httpclient"
)

// PageRequest describes a listing page to load.
type PageRequest struct {
	URL           string
	ReadySelector string
	Timeout       time.Duration
	Headers       map[string]string
}

// PageFetcher loads a page and returns a queryable document.
type PageFetcher interface {
	Strategy() string
	FetchDocument(ctx context.Context, req PageRequest) (*goquery.Document, error)
}

// FetcherRegistry resolves the fetcher a provider asks for.
type FetcherRegistry interface {
	FetcherFor(cfg Provider) (PageFetcher, error)
}

type fetcherRegistry struct {
	fetchers map[string]PageFetcher
	mu       sync.RWMutex
}

// NewFetcherRegistry builds a registry for the provided fetcher implementations.
func NewFetcherRegistry(fetchers ...PageFetcher) FetcherRegistry {
	reg := &fetcherRegistry{
		fetchers: make(map[string]PageFetcher, len(fetchers)),
	}

	for _, f := range fetchers {
		if f == nil {
			continue
		}
		reg.fetchers[strings.ToLower(strings.TrimSpace(f.Strategy()))] = f
	}

	return reg
}

// FetcherFor selects the fetcher for the given provider based on its fetch strategy.
func (r *fetcherRegistry) FetcherFor(cfg Provider) (PageFetcher, error) {
	strategy := strings.ToLower(strings.TrimSpace(cfg.FetchStrategy))
	if strategy == "" {
		strategy = StrategyStatic
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.fetchers[strategy]; ok {
		return f, nil
	}

	return nil, fmt.Errorf("no fetcher registered for strategy %q (provider %q)", strategy, cfg.ID)
}

// DefaultHTTPClient returns a tuned client for page fetchers.
func DefaultHTTPClient() httpclient.Client { return httpclient.NewRestyClient(30 * time.Second) }

// DefaultFetcherRegistry wires up the static and browser fetchers.
func DefaultFetcherRegistry(client httpclient.Client, browser BrowserOptions) FetcherRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}

	return NewFetcherRegistry(
		NewStaticFetcher(client),
		NewBrowserFetcher(browser),
	)
}
