// Package harvest drives one provider through fetch, extraction and feed output.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adda-Baaj/pressfeed/internal/crawler"
	"github.com/Adda-Baaj/pressfeed/internal/domain"
	"github.com/Adda-Baaj/pressfeed/internal/feed"
	"github.com/Adda-Baaj/pressfeed/internal/logger"
	"github.com/Adda-Baaj/pressfeed/pkg/providers"
	"github.com/Adda-Baaj/pressfeed/pkg/publishers"
)

// RunRecorder stores the outcome of each run.
type RunRecorder interface {
	RecordRun(res domain.RunResult) error
}

// EventPublisher announces written feeds and reports how many sinks failed.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) int
}

// Deps are the collaborators of a Runner. Ledger and Publisher are optional.
type Deps struct {
	Fetchers  providers.FetcherRegistry
	Extractor *crawler.Extractor
	Enricher  *crawler.Enricher
	Writer    *feed.Writer
	Ledger    RunRecorder
	Publisher EventPublisher
	Log       logger.Logger
	Now       func() time.Time
}

// Runner executes provider runs one at a time.
type Runner struct {
	deps Deps
	log  logger.Logger
}

// NewRunner validates deps and fills defaults for the optional ones.
func NewRunner(deps Deps) (*Runner, error) {
	if deps.Fetchers == nil {
		return nil, errors.New("harvest: fetcher registry is required")
	}
	if deps.Writer == nil {
		return nil, errors.New("harvest: feed writer is required")
	}
	deps.Log = logger.Ensure(deps.Log)
	if deps.Extractor == nil {
		deps.Extractor = crawler.NewExtractor(deps.Log)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Runner{deps: deps, log: deps.Log}, nil
}

// Run scrapes one provider and rewrites its feed file.
// A failed fetch still produces an empty feed and is reported in the result, not as an error.
// Only write failures, an unknown fetch strategy and cancellation are returned.
func (r *Runner) Run(ctx context.Context, p providers.Provider) (domain.RunResult, error) {
	res := domain.RunResult{
		ProviderID: p.ID,
		OutputPath: p.OutputPath,
		StartedAt:  r.deps.Now().UTC(),
	}
	log := r.log.With(map[string]any{"provider_id": p.ID})

	fetcher, err := r.deps.Fetchers.FetcherFor(p)
	if err != nil {
		return res, err
	}

	log.InfoObj("fetching listing page", "fetch_start", map[string]any{
		"url":      p.ListingURL,
		"strategy": fetcher.Strategy(),
		"timeout":  p.Timeout().String(),
	})

	var items []domain.FeedItem
	doc, err := fetcher.FetchDocument(ctx, p.PageRequest())
	switch {
	case err != nil && ctx.Err() != nil:
		return res, ctx.Err()
	case err != nil:
		res.FetchError = err.Error()
		log.ErrorObj("listing fetch failed", "fetch_error", map[string]any{
			"url":     p.ListingURL,
			"timeout": errors.Is(err, providers.ErrFetchTimeout),
			"error":   err,
		})
	default:
		extraction := r.deps.Extractor.Extract(ctx, p, doc)
		res.RowsFound = extraction.RowsFound
		res.RowsSkipped = len(extraction.Failures)
		items = extraction.Items
		if p.Enrich && r.deps.Enricher != nil && len(items) > 0 {
			items = r.deps.Enricher.Enrich(ctx, p, items)
		}
	}

	// A shutdown mid-extraction leaves a partial batch; keep the previous feed instead.
	if err := ctx.Err(); err != nil {
		log.WarnObj("run cancelled before write", "run_cancelled", map[string]any{"path": p.OutputPath})
		return res, err
	}

	if len(items) == 0 {
		log.WarnObj("feed has no items", "feed_empty", map[string]any{"path": p.OutputPath})
	}

	meta := p.Meta()
	if err := r.deps.Writer.Write(p.OutputPath, meta, items); err != nil {
		log.ErrorObj("feed write failed", "feed_write_error", map[string]any{"error": err})
		return res, err
	}
	res.ItemCount = len(items)
	res.FinishedAt = r.deps.Now().UTC()

	log.InfoObj("provider run finished", "run_finished", map[string]any{
		"path":         p.OutputPath,
		"items":        res.ItemCount,
		"rows_found":   res.RowsFound,
		"rows_skipped": res.RowsSkipped,
		"duration":     res.FinishedAt.Sub(res.StartedAt).String(),
	})

	if r.deps.Ledger != nil {
		if err := r.deps.Ledger.RecordRun(res); err != nil {
			log.WarnObj("run ledger update failed", "ledger_error", map[string]any{"error": err})
		}
	}
	if r.deps.Publisher != nil {
		r.deps.Publisher.Publish(ctx, publishers.NewEvent(res, meta, items))
	}

	return res, nil
}

// RunAll runs providers sequentially. Errors are joined; one provider failing does not stop the rest.
func (r *Runner) RunAll(ctx context.Context, provs []providers.Provider) ([]domain.RunResult, error) {
	results := make([]domain.RunResult, 0, len(provs))
	var errs []error

	for _, p := range provs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := r.Run(ctx, p)
		results = append(results, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("provider %s: %w", p.ID, err))
		}
	}

	return results, errors.Join(errs...)
}
