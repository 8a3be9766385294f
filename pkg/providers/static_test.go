package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/pressfeed/pkg/httpclient"
)

func TestStaticFetcherParsesDocument(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<ul class="newslist"><li>一</li><li>二</li></ul>`))
	}))
	defer server.Close()

	f := NewStaticFetcher(httpclient.NewRestyClient(5 * time.Second))
	doc, err := f.FetchDocument(context.Background(), PageRequest{
		URL:     server.URL + "/media/",
		Timeout: 5 * time.Second,
		Headers: map[string]string{"X-Test": "yes"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Find("ul.newslist > li").Length())
	assert.Equal(t, "/media/", doc.Url.Path)
}

func TestStaticFetcherRejectsNon200(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewStaticFetcher(nil).FetchDocument(context.Background(), PageRequest{URL: server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.False(t, errors.Is(err, ErrFetchTimeout))
}

func TestStaticFetcherRejectsOversizedPage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<ul>"))
		_, _ = w.Write([]byte(strings.Repeat("<li>x</li>", maxPageBytes/10+1)))
	}))
	defer server.Close()

	_, err := NewStaticFetcher(nil).FetchDocument(context.Background(), PageRequest{URL: server.URL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPageTooLarge))
}

func TestStaticFetcherTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewStaticFetcher(nil).FetchDocument(context.Background(), PageRequest{
		URL:     server.URL,
		Timeout: 50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchTimeout))

	var timeoutErr *FetchTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, server.URL, timeoutErr.URL)
}

func TestFetcherRegistryResolvesStrategy(t *testing.T) {
	t.Parallel()

	reg := DefaultFetcherRegistry(nil, BrowserOptions{Headless: true})

	f, err := reg.FetcherFor(Provider{ID: "a", FetchStrategy: "Browser"})
	require.NoError(t, err)
	assert.Equal(t, StrategyBrowser, f.Strategy())

	f, err = reg.FetcherFor(Provider{ID: "b"})
	require.NoError(t, err)
	assert.Equal(t, StrategyStatic, f.Strategy())

	_, err = NewFetcherRegistry(NewStaticFetcher(nil)).FetcherFor(Provider{ID: "c", FetchStrategy: StrategyBrowser})
	assert.Error(t, err)
}
