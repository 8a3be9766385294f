package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Adda-Baaj/pressfeed/internal/domain"
	"github.com/Adda-Baaj/pressfeed/pkg/httpclient"
)

const (
	// Supported page fetch strategies.
	StrategyStatic  = "static"
	StrategyBrowser = "browser"

	defaultMaxItems          = 10
	defaultTimeoutSeconds    = 30
	defaultRowTimeoutSeconds = 5
	defaultLanguage          = "ja"
	defaultOutputDir         = "rss_output"
)

// configFile represents the structure of the providers configuration file.
type configFile struct {
	Providers []Provider `json:"providers" yaml:"providers"`
}

// Provider describes one listing page and how to turn it into a feed.
type Provider struct {
	ID                string            `json:"id" yaml:"id"`
	Name              string            `json:"name" yaml:"name"`
	Enabled           *bool             `json:"enabled" yaml:"enabled"`
	BaseURL           string            `json:"base_url" yaml:"base_url"`
	ListingURL        string            `json:"listing_url" yaml:"listing_url"`
	FetchStrategy     string            `json:"fetch_strategy" yaml:"fetch_strategy"`
	ReadySelector     string            `json:"ready_selector" yaml:"ready_selector"`
	RowSelector       string            `json:"row_selector" yaml:"row_selector"`
	TitleSelector     string            `json:"title_selector" yaml:"title_selector"`
	LinkSelector      string            `json:"link_selector" yaml:"link_selector"`
	DateSelector      string            `json:"date_selector" yaml:"date_selector"`
	CategorySelector  string            `json:"category_selector" yaml:"category_selector"`
	ContentSelector   string            `json:"content_selector" yaml:"content_selector"`
	OutputPath        string            `json:"output_path" yaml:"output_path"`
	MaxItems          int               `json:"max_items" yaml:"max_items"`
	TimeoutSeconds    int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	RowTimeoutSeconds int               `json:"row_timeout_seconds" yaml:"row_timeout_seconds"`
	Headers           map[string]string `json:"headers" yaml:"headers"`
	Enrich            bool              `json:"enrich" yaml:"enrich"`
	Feed              FeedConfig        `json:"feed" yaml:"feed"`
}

// FeedConfig holds channel metadata for the generated feed.
type FeedConfig struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Language    string `json:"language" yaml:"language"`
}

// EnabledValue returns enabled flag defaulting to true.
func (p Provider) EnabledValue() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// Timeout is the budget for loading the listing page.
func (p Provider) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// RowTimeout is the budget for per-row work that touches the network.
func (p Provider) RowTimeout() time.Duration {
	return time.Duration(p.RowTimeoutSeconds) * time.Second
}

// Meta returns the channel metadata for the provider's feed.
func (p Provider) Meta() domain.FeedMeta {
	return domain.FeedMeta{
		Title:       p.Feed.Title,
		Link:        p.ListingURL,
		Description: p.Feed.Description,
		Language:    p.Feed.Language,
	}
}

// PageRequest builds the fetch request for the provider's listing page.
func (p Provider) PageRequest() PageRequest {
	return PageRequest{
		URL:           p.ListingURL,
		ReadySelector: p.ReadySelector,
		Timeout:       p.Timeout(),
		Headers:       Headers(p),
	}
}

// Headers returns the request headers for a provider, including defaults.
func Headers(p Provider) map[string]string {
	out := map[string]string{
		"Accept":          "text/html,application/xhtml+xml",
		"Accept-Language": "ja,en;q=0.8",
		"User-Agent":      httpclient.DefaultUserAgent,
	}
	for k, v := range p.Headers {
		out[k] = v
	}
	return out
}

// Registry holds validated provider definitions.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	idx       map[string]Provider
}

// LoadRegistry loads provider definitions from a YAML/JSON file.
// An empty path yields the built-in defaults.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return NewRegistry(DefaultProviders()...)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open providers file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}

	expanded := []byte(os.ExpandEnv(string(raw)))

	fileReg, err := parseProviderFile(expanded, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(fileReg.Providers) == 0 {
		return nil, errors.New("providers file contains no providers entries")
	}

	return NewRegistry(fileReg.Providers...)
}

// NewRegistry sanitizes and validates the given providers.
func NewRegistry(providers ...Provider) (*Registry, error) {
	reg := &Registry{
		providers: make([]Provider, len(providers)),
		idx:       make(map[string]Provider, len(providers)),
	}

	for i := range providers {
		p := sanitizeProvider(providers[i])
		if err := validateProvider(p); err != nil {
			return nil, fmt.Errorf("providers[%d]: %w", i, err)
		}
		if _, exists := reg.idx[p.ID]; exists {
			return nil, fmt.Errorf("duplicate provider id %q", p.ID)
		}
		reg.providers[i] = p
		reg.idx[p.ID] = p
	}

	return reg, nil
}

// parseProviderFile attempts to decode the providers file content.
func parseProviderFile(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg configFile
		if err := d.fn(data, &reg); err != nil {
			lastErr = fmt.Errorf("decode %s providers: %w", d.name, err)
			continue
		}
		return reg, nil
	}

	if lastErr != nil {
		return configFile{}, lastErr
	}
	return configFile{}, errors.New("providers file format not recognized (expected YAML or JSON)")
}

// sanitizeProvider trims fields and fills defaults.
func sanitizeProvider(p Provider) Provider {
	p.ID = strings.ToLower(strings.TrimSpace(p.ID))
	p.Name = strings.TrimSpace(p.Name)
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	p.ListingURL = strings.TrimSpace(p.ListingURL)
	p.FetchStrategy = strings.ToLower(strings.TrimSpace(p.FetchStrategy))
	p.RowSelector = strings.TrimSpace(p.RowSelector)
	p.TitleSelector = strings.TrimSpace(p.TitleSelector)
	p.LinkSelector = strings.TrimSpace(p.LinkSelector)
	p.DateSelector = strings.TrimSpace(p.DateSelector)
	p.CategorySelector = strings.TrimSpace(p.CategorySelector)
	p.ContentSelector = strings.TrimSpace(p.ContentSelector)
	p.ReadySelector = strings.TrimSpace(p.ReadySelector)
	p.OutputPath = strings.TrimSpace(p.OutputPath)
	p.Headers = sanitizeHeaders(p.Headers)

	if p.Enabled == nil {
		def := true
		p.Enabled = &def
	}
	if p.FetchStrategy == "" {
		p.FetchStrategy = StrategyStatic
	}
	if p.BaseURL == "" && p.ListingURL != "" {
		if u, err := url.Parse(p.ListingURL); err == nil && u.Host != "" {
			p.BaseURL = u.Scheme + "://" + u.Host
		}
	}
	if p.LinkSelector == "" {
		p.LinkSelector = p.TitleSelector
	}
	if p.ReadySelector == "" {
		p.ReadySelector = p.RowSelector
	}
	if p.MaxItems == 0 {
		p.MaxItems = defaultMaxItems
	}
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = defaultTimeoutSeconds
	}
	if p.RowTimeoutSeconds <= 0 {
		p.RowTimeoutSeconds = defaultRowTimeoutSeconds
	}
	if p.OutputPath == "" && p.ID != "" {
		p.OutputPath = filepath.Join(defaultOutputDir, p.ID+".xml")
	}

	p.Feed.Title = strings.TrimSpace(p.Feed.Title)
	p.Feed.Description = strings.TrimSpace(p.Feed.Description)
	p.Feed.Language = strings.TrimSpace(p.Feed.Language)
	if p.Feed.Title == "" {
		p.Feed.Title = firstNonEmpty(p.Name, p.ID)
	}
	if p.Feed.Description == "" {
		p.Feed.Description = p.Feed.Title
	}
	if p.Feed.Language == "" {
		p.Feed.Language = defaultLanguage
	}

	return p
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// validateProvider checks that required fields are present.
func validateProvider(p Provider) error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if err := validateAbsURL("listing_url", p.ListingURL); err != nil {
		return fmt.Errorf("provider %q: %w", p.ID, err)
	}
	if err := validateAbsURL("base_url", p.BaseURL); err != nil {
		return fmt.Errorf("provider %q: %w", p.ID, err)
	}
	switch p.FetchStrategy {
	case StrategyStatic, StrategyBrowser:
	default:
		return fmt.Errorf("fetch_strategy %q not supported for provider %q", p.FetchStrategy, p.ID)
	}
	if p.RowSelector == "" {
		return fmt.Errorf("row_selector is required for provider %q", p.ID)
	}
	if p.TitleSelector == "" {
		return fmt.Errorf("title_selector is required for provider %q", p.ID)
	}
	if p.DateSelector == "" {
		return fmt.Errorf("date_selector is required for provider %q", p.ID)
	}
	if p.MaxItems < 1 {
		return fmt.Errorf("max_items must be at least 1 for provider %q", p.ID)
	}
	return nil
}

func validateAbsURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%s %q must be an absolute URL", field, raw)
	}
	return nil
}

// ByID returns the provider config by id.
func (r *Registry) ByID(id string) (Provider, bool) {
	if r == nil {
		return Provider{}, false
	}

	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return Provider{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.idx[id]
	return p, ok
}

// All returns all configured providers in file order.
func (r *Registry) All() []Provider {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Enabled returns providers that are enabled.
func (r *Registry) Enabled() []Provider {
	all := r.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]Provider, 0, len(all))
	for _, p := range all {
		if p.EnabledValue() {
			out = append(out, p)
		}
	}
	return out
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
