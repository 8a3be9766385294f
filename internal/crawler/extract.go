package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/pressfeed/internal/domain"
	"github.com/Adda-Baaj/pressfeed/internal/jpdate"
	"github.com/Adda-Baaj/pressfeed/internal/logger"
	"github.com/Adda-Baaj/pressfeed/pkg/providers"
)

// categorySeparator joins category and title in descriptions (full-width colon).
const categorySeparator = "："

var errEmptyField = errors.New("element missing or empty")

// RowExtractionError reports a single row that could not be turned into a FeedItem.
type RowExtractionError struct {
	Index int // 1-based position on the page
	Field string
	Err   error
}

func (e *RowExtractionError) Error() string {
	return fmt.Sprintf("row %d: %s: %v", e.Index, e.Field, e.Err)
}

func (e *RowExtractionError) Unwrap() error { return e.Err }

// Extraction is the outcome of scanning one listing page.
// RowsFound counts every match on the page; only the first max_items are extracted.
type Extraction struct {
	Items     []domain.FeedItem
	RowsFound int
	Failures  []*RowExtractionError
}

// Extractor locates listing rows and reads their fields.
type Extractor struct {
	log logger.Logger
}

// NewExtractor creates an Extractor that reports row failures to log.
func NewExtractor(log logger.Logger) *Extractor {
	return &Extractor{log: logger.Ensure(log)}
}

// LocateRows returns up to max rows matching selector, in document order.
func LocateRows(doc *goquery.Document, selector string, max int) []*goquery.Selection {
	if doc == nil || strings.TrimSpace(selector) == "" {
		return nil
	}

	matches := doc.Find(selector)
	n := matches.Length()
	if max > 0 && n > max {
		n = max
	}

	rows := make([]*goquery.Selection, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, matches.Eq(i))
	}
	return rows
}

// countRows returns the number of matches before any cap is applied.
func countRows(doc *goquery.Document, selector string) int {
	if doc == nil || strings.TrimSpace(selector) == "" {
		return 0
	}
	return doc.Find(selector).Length()
}

// Extract reads every located row. Failed rows are logged and skipped; they never abort the batch.
func (e *Extractor) Extract(ctx context.Context, cfg providers.Provider, doc *goquery.Document) Extraction {
	rows := LocateRows(doc, cfg.RowSelector, cfg.MaxItems)
	out := Extraction{RowsFound: countRows(doc, cfg.RowSelector)}

	e.log.InfoObj("listing rows located", "rows_located", map[string]any{
		"provider_id": cfg.ID,
		"selector":    cfg.RowSelector,
		"count":       out.RowsFound,
		"used":        len(rows),
	})
	if len(rows) == 0 {
		e.log.WarnObj("no updates found on listing page", "rows_empty", map[string]any{
			"provider_id": cfg.ID,
			"url":         cfg.ListingURL,
		})
		return out
	}

	base := baseURL(cfg)
	for i, row := range rows {
		if ctx.Err() != nil {
			break
		}

		item, err := extractRow(cfg, base, i+1, row)
		if err != nil {
			var rowErr *RowExtractionError
			if !errors.As(err, &rowErr) {
				rowErr = &RowExtractionError{Index: i + 1, Field: "row", Err: err}
			}
			out.Failures = append(out.Failures, rowErr)
			e.log.WarnObj("row extraction failed", "row_error", map[string]any{
				"provider_id": cfg.ID,
				"row":         rowErr.Index,
				"field":       rowErr.Field,
				"error":       rowErr.Err.Error(),
			})
			continue
		}
		out.Items = append(out.Items, item)
	}

	return out
}

// extractRow reads date, title, link, category and optional content from one row.
func extractRow(cfg providers.Provider, base *url.URL, index int, row *goquery.Selection) (domain.FeedItem, error) {
	dateText := selectText(row, cfg.DateSelector)
	if dateText == "" {
		return domain.FeedItem{}, &RowExtractionError{Index: index, Field: "date", Err: errEmptyField}
	}
	publishedAt, err := jpdate.Parse(dateText)
	if err != nil {
		return domain.FeedItem{}, &RowExtractionError{Index: index, Field: "date", Err: err}
	}

	title := selectText(row, cfg.TitleSelector)
	if title == "" {
		return domain.FeedItem{}, &RowExtractionError{Index: index, Field: "title", Err: errEmptyField}
	}

	link := cfg.ListingURL
	if href, ok := row.Find(cfg.LinkSelector).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		link = resolveURL(strings.TrimSpace(href), base)
	}

	var category string
	if cfg.CategorySelector != "" {
		category = selectText(row, cfg.CategorySelector)
	}

	description := title
	if category != "" {
		description = category + categorySeparator + title
	}
	if cfg.ContentSelector != "" {
		if content := row.Find(cfg.ContentSelector).First(); content.Length() > 0 {
			rich, err := SanitizeHTML(content, base)
			if err != nil {
				return domain.FeedItem{}, &RowExtractionError{Index: index, Field: "content", Err: err}
			}
			if rich != "" {
				description = rich
			}
		}
	}

	return domain.FeedItem{
		Title:       title,
		Link:        link,
		Description: description,
		Category:    category,
		PublishedAt: publishedAt,
	}, nil
}

// selectText returns the whitespace-collapsed text of the first match.
func selectText(row *goquery.Selection, selector string) string {
	return normalizeWhitespace(row.Find(selector).First().Text())
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func baseURL(cfg providers.Provider) *url.URL {
	for _, raw := range []string{cfg.BaseURL, cfg.ListingURL} {
		if u, err := url.Parse(raw); err == nil && u.IsAbs() {
			return u
		}
	}
	return nil
}

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw string, base *url.URL) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() || base == nil {
		return parsed.String()
	}

	return base.ResolveReference(parsed).String()
}
