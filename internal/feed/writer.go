// Package feed renders feed items as an RSS 2.0 document on disk.
package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/feeds"

	"github.com/Adda-Baaj/pressfeed/internal/domain"
	"github.com/Adda-Baaj/pressfeed/internal/logger"
)

const (
	DefaultGenerator = "pressfeed"
	DefaultDocs      = "http://www.rssboard.org/rss-specification"

	filePerm = 0o644
	dirPerm  = 0o755
)

// WriteError reports a failure while persisting a feed file.
type WriteError struct {
	Path string
	Op   string // mkdir, create, encode, close, chmod or rename
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write feed %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Option customizes a Writer.
type Option func(*Writer)

// WithClock overrides the clock used for lastBuildDate.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// Writer builds RSS channels and writes them atomically.
type Writer struct {
	now func() time.Time
	log logger.Logger
}

// NewWriter returns a Writer using the wall clock unless overridden.
func NewWriter(log logger.Logger, opts ...Option) *Writer {
	w := &Writer{now: time.Now, log: logger.Ensure(log)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Build maps channel metadata and items onto the RSS model. Items keep their input order.
func (w *Writer) Build(meta domain.FeedMeta, items []domain.FeedItem) *feeds.RssFeed {
	rss := &feeds.RssFeed{
		Title:         meta.Title,
		Link:          meta.Link,
		Description:   meta.Description,
		Language:      meta.Language,
		Generator:     orDefault(meta.Generator, DefaultGenerator),
		Docs:          orDefault(meta.Docs, DefaultDocs),
		LastBuildDate: w.now().UTC().Format(time.RFC1123Z),
		Items:         make([]*feeds.RssItem, 0, len(items)),
	}

	for _, item := range items {
		rss.Items = append(rss.Items, &feeds.RssItem{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			Category:    item.Category,
			Guid:        &feeds.RssGuid{Id: item.GUID(), IsPermaLink: "false"},
			PubDate:     item.PublishedAt.UTC().Format(time.RFC1123Z),
		})
	}
	return rss
}

// Write renders the feed to path, replacing any previous file.
func (w *Writer) Write(path string, meta domain.FeedMeta, items []domain.FeedItem) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return &WriteError{Path: path, Op: "mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &WriteError{Path: path, Op: "create", Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := feeds.WriteXML(w.Build(meta, items), tmp); err != nil {
		_ = tmp.Close()
		return &WriteError{Path: path, Op: "encode", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &WriteError{Path: path, Op: "close", Err: err}
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return &WriteError{Path: path, Op: "chmod", Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &WriteError{Path: path, Op: "rename", Err: err}
	}
	committed = true

	w.log.InfoObj("feed written", "feed_written", map[string]any{
		"path":  path,
		"items": len(items),
	})
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
