package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/Adda-Baaj/pressfeed/internal/domain"
	"github.com/Adda-Baaj/pressfeed/internal/logger"
	"github.com/Adda-Baaj/pressfeed/pkg/httpclient"
	"github.com/Adda-Baaj/pressfeed/pkg/providers"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
	maxExcerptRunes  = 300
)

// Enricher fills thin descriptions from the linked article pages.
type Enricher struct {
	client httpclient.Client
	log    logger.Logger
}

// NewEnricher creates a new Enricher with the given HTTP client and logger.
func NewEnricher(client httpclient.Client, log logger.Logger) *Enricher {
	if client == nil {
		client = providers.DefaultHTTPClient()
	}
	return &Enricher{client: client, log: logger.Ensure(log)}
}

// Enrich visits, one at a time, every item whose description is only its title
// and replaces the description with the page summary. Failures keep the original item.
func (e *Enricher) Enrich(ctx context.Context, cfg providers.Provider, items []domain.FeedItem) []domain.FeedItem {
	out := make([]domain.FeedItem, len(items))
	copy(out, items)

	for idx, item := range items {
		if ctx.Err() != nil {
			break
		}
		if item.Description != item.Title || item.Link == cfg.ListingURL {
			continue
		}

		summary, err := e.fetchSummary(ctx, cfg, item.Link)
		if err != nil {
			e.log.WarnObj("article enrichment failed", "enrich_error", map[string]any{
				"provider_id": cfg.ID,
				"row":         idx + 1,
				"url":         item.Link,
				"error":       err.Error(),
			})
			continue
		}
		if summary != "" {
			out[idx].Description = summary
		}
	}

	return out
}

// fetchSummary loads one article page within the provider's row budget.
func (e *Enricher) fetchSummary(ctx context.Context, cfg providers.Provider, link string) (string, error) {
	if timeout := cfg.RowTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	e.log.DebugObj("fetching article page", "enrich_start", map[string]any{
		"provider_id": cfg.ID,
		"url":         link,
	})

	resp, err := e.client.Get(ctx, link, providers.Headers(cfg))
	if err != nil {
		return "", fmt.Errorf("http fetch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return "", err
	}
	if meta.Description != "" {
		return meta.Description, nil
	}

	pageURL, _ := url.Parse(link)
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return truncateRunes(firstNonEmpty(article.Excerpt, article.TextContent), maxExcerptRunes), nil
}

// pageMeta holds metadata extracted from an HTML page.
type pageMeta struct {
	Description string
}

// parseMeta extracts page metadata from the HTML body.
func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return pageMeta{
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
	}, nil
}

// firstNonEmpty returns the first non-empty string from the given values.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func truncateRunes(s string, max int) string {
	s = normalizeWhitespace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
