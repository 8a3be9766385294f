package domain

import "time"

// Domain contains core models shared across the pipeline.

// guidDateLayout is the date portion appended to a link to form an item GUID.
const guidDateLayout = "20060102"

// FeedItem is one scraped listing row, ready to be written as an RSS entry.
type FeedItem struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// GUID returns the stable, non-permalink identifier "<link>#<YYYYMMDD>".
// The date is taken in UTC so the same (link, date) pair always yields the same value.
func (i FeedItem) GUID() string {
	return i.Link + "#" + i.PublishedAt.UTC().Format(guidDateLayout)
}

// FeedMeta describes the channel of a generated feed.
type FeedMeta struct {
	Title       string
	Link        string
	Description string
	Language    string
	Generator   string
	Docs        string
}

// RunResult summarizes one provider run.
type RunResult struct {
	ProviderID  string    `json:"provider_id"`
	OutputPath  string    `json:"output_path"`
	RowsFound   int       `json:"rows_found"`
	RowsSkipped int       `json:"rows_skipped"`
	ItemCount   int       `json:"item_count"`
	FetchError  string    `json:"fetch_error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}
