package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserActionsWaitForReadySelector(t *testing.T) {
	t.Parallel()

	f := &browserFetcher{opts: BrowserOptions{Headless: true}}
	var html string

	plain := f.actions(PageRequest{URL: "https://example.com"}, &html)
	assert.Len(t, plain, 2)

	waiting := f.actions(PageRequest{URL: "https://example.com", ReadySelector: "li"}, &html)
	require.Len(t, waiting, 3)
	assert.Equal(t, visibleWait{selector: "li"}, waiting[1])

	withHeaders := f.actions(PageRequest{
		URL:           "https://example.com",
		ReadySelector: "li",
		Headers:       map[string]string{"User-Agent": "ua", "Accept-Language": "ja"},
	}, &html)
	assert.Len(t, withHeaders, 5)
}

// Rendering needs a local Chrome; opt in with PRESSFEED_CHROME_TESTS=1.
func TestBrowserFetcherRendersScriptContent(t *testing.T) {
	if os.Getenv("PRESSFEED_CHROME_TESTS") == "" {
		t.Skip("set PRESSFEED_CHROME_TESTS=1 to run headless Chrome tests")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><ul id="list"></ul><script>
			setTimeout(function () {
				document.getElementById("list").innerHTML = "<li>rendered</li>";
			}, 100);
		</script></body></html>`))
	}))
	defer server.Close()

	f := NewBrowserFetcher(BrowserOptions{Headless: true})
	doc, err := f.FetchDocument(context.Background(), PageRequest{
		URL:           server.URL,
		ReadySelector: "#list > li",
		Timeout:       20 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "rendered", doc.Find("#list > li").Text())
}

func TestBrowserFetcherWaitsForVisibility(t *testing.T) {
	if os.Getenv("PRESSFEED_CHROME_TESTS") == "" {
		t.Skip("set PRESSFEED_CHROME_TESTS=1 to run headless Chrome tests")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><ul id="list" style="display:none"><li>loading</li></ul><script>
			setTimeout(function () {
				var list = document.getElementById("list");
				list.innerHTML = "<li>ready</li>";
				list.style.display = "block";
			}, 200);
		</script></body></html>`))
	}))
	defer server.Close()

	doc, err := NewBrowserFetcher(BrowserOptions{Headless: true}).FetchDocument(context.Background(), PageRequest{
		URL:           server.URL,
		ReadySelector: "#list > li",
		Timeout:       20 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "ready", doc.Find("#list > li").Text())
}
