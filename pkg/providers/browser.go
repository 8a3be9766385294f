package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BrowserOptions configures the headless Chrome session.
type BrowserOptions struct {
	Headless bool
	ExecPath string
}

// browserFetcher renders pages in headless Chrome so script-driven listings settle before extraction.
type browserFetcher struct {
	opts BrowserOptions
}

// NewBrowserFetcher builds a chromedp-backed fetcher.
func NewBrowserFetcher(opts BrowserOptions) PageFetcher {
	return &browserFetcher{opts: opts}
}

func (f *browserFetcher) Strategy() string {
	return StrategyBrowser
}

// FetchDocument navigates to the page, waits for the ready selector and snapshots the rendered DOM.
// The browser process is torn down on every return path by the deferred cancels.
func (f *browserFetcher) FetchDocument(ctx context.Context, req PageRequest) (*goquery.Document, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("page url is empty")
	}
	pageURL, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, f.allocatorOptions(req.Headers)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx := browserCtx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(browserCtx, req.Timeout)
		defer cancel()
	}

	var html string
	if err := chromedp.Run(runCtx, f.actions(req, &html)...); err != nil {
		if isTimeout(runCtx, err) {
			return nil, &FetchTimeoutError{URL: req.URL, Timeout: req.Timeout, Err: err}
		}
		return nil, fmt.Errorf("render page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse rendered html: %w", err)
	}
	doc.Url = pageURL

	return doc, nil
}

func (f *browserFetcher) allocatorOptions(headers map[string]string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", f.opts.Headless))
	if f.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.opts.ExecPath))
	}
	if ua := headers["User-Agent"]; ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}
	return opts
}

func (f *browserFetcher) actions(req PageRequest, html *string) []chromedp.Action {
	var actions []chromedp.Action

	extra := network.Headers{}
	for k, v := range req.Headers {
		if strings.EqualFold(k, "User-Agent") {
			continue
		}
		extra[k] = v
	}
	if len(extra) > 0 {
		actions = append(actions, network.Enable(), network.SetExtraHTTPHeaders(extra))
	}

	actions = append(actions, chromedp.Navigate(req.URL))
	if req.ReadySelector != "" {
		actions = append(actions, visibleWait{selector: req.ReadySelector})
	}
	actions = append(actions, chromedp.OuterHTML("html", html, chromedp.ByQuery))
	return actions
}

// visibleWait blocks until the first node matching selector is rendered and visible.
type visibleWait struct {
	selector string
}

func (w visibleWait) Do(ctx context.Context) error {
	return chromedp.WaitVisible(w.selector, chromedp.ByQuery).Do(ctx)
}
