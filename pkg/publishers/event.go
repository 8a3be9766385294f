package publishers

import (
	"context"
	"time"

	"github.com/Adda-Baaj/pressfeed/internal/domain"
	"github.com/Adda-Baaj/pressfeed/internal/logger"
)

// Logger is the structured logger publishers report through.
type Logger = logger.Logger

// Event announces a freshly written feed file.
type Event struct {
	ProviderID  string            `json:"provider_id"`
	FeedTitle   string            `json:"feed_title,omitempty"`
	OutputPath  string            `json:"output_path"`
	ItemCount   int               `json:"item_count"`
	GeneratedAt time.Time         `json:"generated_at"`
	Items       []domain.FeedItem `json:"items"`
}

// NewEvent builds the event for a finished run.
func NewEvent(res domain.RunResult, meta domain.FeedMeta, items []domain.FeedItem) Event {
	if items == nil {
		items = []domain.FeedItem{}
	}
	return Event{
		ProviderID:  res.ProviderID,
		FeedTitle:   meta.Title,
		OutputPath:  res.OutputPath,
		ItemCount:   len(items),
		GeneratedAt: res.FinishedAt.UTC(),
		Items:       items,
	}
}

// Publisher delivers feed events to an external sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

func ensureLogger(log Logger) Logger {
	return logger.Ensure(log)
}
