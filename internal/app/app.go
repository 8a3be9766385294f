// Package app wires configuration to the harvest pipeline and its lifecycle.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Adda-Baaj/pressfeed/internal/config"
	"github.com/Adda-Baaj/pressfeed/internal/crawler"
	"github.com/Adda-Baaj/pressfeed/internal/domain"
	"github.com/Adda-Baaj/pressfeed/internal/feed"
	"github.com/Adda-Baaj/pressfeed/internal/harvest"
	"github.com/Adda-Baaj/pressfeed/internal/logger"
	"github.com/Adda-Baaj/pressfeed/internal/scheduler"
	"github.com/Adda-Baaj/pressfeed/internal/state"
	"github.com/Adda-Baaj/pressfeed/pkg/httpclient"
	"github.com/Adda-Baaj/pressfeed/pkg/providers"
	"github.com/Adda-Baaj/pressfeed/pkg/publishers"
)

// Application owns the runner and the resources it needs.
type Application struct {
	cfg        config.Config
	log        logger.Logger
	providers  []providers.Provider
	runner     *harvest.Runner
	ledger     *state.Store
	dispatcher *publishers.Dispatcher
}

// Option customizes an Application at construction.
type Option func(*options)

type options struct {
	fetchers providers.FetcherRegistry
	writer   []feed.Option
}

// WithFetchers replaces the default static/browser fetchers.
func WithFetchers(reg providers.FetcherRegistry) Option {
	return func(o *options) { o.fetchers = reg }
}

// WithWriterOptions passes options to the feed writer.
func WithWriterOptions(opts ...feed.Option) Option {
	return func(o *options) { o.writer = append(o.writer, opts...) }
}

// New loads providers and publishers and builds the pipeline.
func New(ctx context.Context, cfg config.Config, log logger.Logger, opts ...Option) (*Application, error) {
	log = logger.Ensure(log)
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	selected, err := selectProviders(cfg)
	if err != nil {
		return nil, err
	}

	client := httpclient.NewRestyClient(cfg.HTTP.Timeout(), httpclient.WithUserAgent(cfg.HTTP.UserAgent))
	if o.fetchers == nil {
		o.fetchers = providers.DefaultFetcherRegistry(client, providers.BrowserOptions{
			Headless: cfg.Browser.Headless,
			ExecPath: cfg.Browser.ExecPath,
		})
	}

	a := &Application{cfg: cfg, log: log, providers: selected}

	if cfg.StatePath != "" {
		if a.ledger, err = state.Open(cfg.StatePath); err != nil {
			return nil, err
		}
	}

	pubCfgs, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), pubCfgs.Enabled(), log)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	a.dispatcher = publishers.NewDispatcher(log, pubs...)

	deps := harvest.Deps{
		Fetchers:  o.fetchers,
		Extractor: crawler.NewExtractor(log),
		Enricher:  crawler.NewEnricher(client, log),
		Writer:    feed.NewWriter(log, o.writer...),
		Publisher: a.dispatcher,
		Log:       log,
	}
	if a.ledger != nil {
		deps.Ledger = a.ledger
	}
	if a.runner, err = harvest.NewRunner(deps); err != nil {
		_ = a.Close()
		return nil, err
	}

	log.InfoObj("application configured", "app_ready", map[string]any{
		"providers":  len(selected),
		"publishers": a.dispatcher.Len(),
		"ledger":     cfg.StatePath,
		"schedule":   cfg.Schedule,
	})
	return a, nil
}

// selectProviders returns the enabled providers, or only cfg.Provider when set.
func selectProviders(cfg config.Config) ([]providers.Provider, error) {
	reg, err := providers.LoadRegistry(cfg.SitesFile)
	if err != nil {
		return nil, err
	}

	var out []providers.Provider
	if cfg.Provider != "" {
		p, ok := reg.ByID(cfg.Provider)
		if !ok {
			return nil, fmt.Errorf("provider %q not found", cfg.Provider)
		}
		out = []providers.Provider{p}
	} else {
		out = reg.Enabled()
	}
	if len(out) == 0 {
		return nil, errors.New("no enabled providers")
	}

	if cfg.HTTP.UserAgent != "" {
		for i := range out {
			out[i] = withUserAgent(out[i], cfg.HTTP.UserAgent)
		}
	}
	return out, nil
}

func withUserAgent(p providers.Provider, ua string) providers.Provider {
	if _, ok := p.Headers["User-Agent"]; ok {
		return p
	}
	headers := make(map[string]string, len(p.Headers)+1)
	for k, v := range p.Headers {
		headers[k] = v
	}
	headers["User-Agent"] = ua
	p.Headers = headers
	return p
}

// Run harvests once, or on the configured schedule until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.cfg.Schedule == "" {
		return a.RunOnce(ctx)
	}
	return a.Serve(ctx)
}

// RunOnce harvests every selected provider a single time.
func (a *Application) RunOnce(ctx context.Context) error {
	_, err := a.runner.RunAll(ctx, a.providers)
	return err
}

// Serve runs immediately, then on every schedule tick.
func (a *Application) Serve(ctx context.Context) error {
	sched, err := scheduler.New(a.cfg.Timezone, a.log)
	if err != nil {
		return err
	}
	if _, err := sched.Next(a.cfg.Schedule, time.Now()); err != nil {
		return err
	}

	job := func(ctx context.Context) {
		if err := a.RunOnce(ctx); err != nil && ctx.Err() == nil {
			a.log.ErrorObj("scheduled run failed", "scheduled_run_error", map[string]any{"error": err})
		}
	}
	job(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return sched.Run(ctx, a.cfg.Schedule, job)
}

// Close releases the ledger and publisher connections.
func (a *Application) Close() error {
	var errs []error
	if a.dispatcher != nil {
		errs = append(errs, a.dispatcher.Close())
	}
	if a.ledger != nil {
		errs = append(errs, a.ledger.Close())
	}
	return errors.Join(errs...)
}

// PrintStatus writes the run ledger at path to w as indented JSON.
func PrintStatus(path string, w io.Writer) error {
	store, err := state.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs()
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []domain.RunResult{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(runs)
}
