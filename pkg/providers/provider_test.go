package providers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const providersYAML = `
providers:
  - id: " Example "
    name: Example Corp
    listing_url: https://www.example.co.jp/news/
    row_selector: ul.news > li
    title_selector: .title a
    date_selector: .date
    category_selector: .cat
    headers:
      X-Token: ${PRESSFEED_TEST_TOKEN}
      "  ": ignored
  - id: disabled
    enabled: false
    base_url: https://other.example.com/
    listing_url: https://other.example.com/list
    fetch_strategy: BROWSER
    row_selector: li
    title_selector: a
    date_selector: time
    max_items: 3
    output_path: out/other.xml
    feed:
      title: Other
      description: Other updates
      language: en
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRegistryYAMLAppliesDefaults(t *testing.T) {
	t.Setenv("PRESSFEED_TEST_TOKEN", "secret")

	reg, err := LoadRegistry(writeFile(t, "providers.yaml", providersYAML))
	require.NoError(t, err)
	require.Len(t, reg.All(), 2)

	p, ok := reg.ByID("EXAMPLE")
	require.True(t, ok)
	assert.Equal(t, "example", p.ID)
	assert.Equal(t, "https://www.example.co.jp", p.BaseURL)
	assert.Equal(t, StrategyStatic, p.FetchStrategy)
	assert.Equal(t, ".title a", p.LinkSelector)
	assert.Equal(t, "ul.news > li", p.ReadySelector)
	assert.Equal(t, 10, p.MaxItems)
	assert.Equal(t, 30*time.Second, p.Timeout())
	assert.Equal(t, 5*time.Second, p.RowTimeout())
	assert.Equal(t, filepath.Join("rss_output", "example.xml"), p.OutputPath)
	assert.Equal(t, "Example Corp", p.Feed.Title)
	assert.Equal(t, "ja", p.Feed.Language)
	assert.Equal(t, map[string]string{"X-Token": "secret"}, p.Headers)
	assert.Equal(t, "secret", Headers(p)["X-Token"])
	assert.NotEmpty(t, Headers(p)["User-Agent"])

	other, ok := reg.ByID("disabled")
	require.True(t, ok)
	assert.Equal(t, "https://other.example.com", other.BaseURL)
	assert.Equal(t, StrategyBrowser, other.FetchStrategy)
	assert.Equal(t, "en", other.Meta().Language)
	assert.Equal(t, "https://other.example.com/list", other.Meta().Link)

	enabled := reg.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "example", enabled[0].ID)
}

func TestLoadRegistryJSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "providers.json", `{"providers":[{"id":"j","listing_url":"https://j.example.com/","row_selector":"li","title_selector":"a","date_selector":"span"}]}`)
	reg, err := LoadRegistry(path)
	require.NoError(t, err)

	p, ok := reg.ByID("j")
	require.True(t, ok)
	assert.Equal(t, "https://j.example.com/", p.PageRequest().URL)
}

func TestLoadRegistryEmptyPathUsesDefaults(t *testing.T) {
	t.Parallel()

	reg, err := LoadRegistry("")
	require.NoError(t, err)

	p, ok := reg.ByID("daiichisankyo")
	require.True(t, ok)
	assert.Equal(t, "https://www.daiichisankyo.co.jp/media/press_release/", p.ListingURL)
	assert.Equal(t, "ul.newslist > li", p.RowSelector)
	assert.Equal(t, "rss_output/DaiichiSankyo.xml", p.OutputPath)
	assert.Equal(t, "第一三共プレスリリースの更新履歴", p.Feed.Description)
}

func TestNewRegistryValidation(t *testing.T) {
	t.Parallel()

	valid := Provider{
		ID:            "ok",
		ListingURL:    "https://example.com/list",
		RowSelector:   "li",
		TitleSelector: "a",
		DateSelector:  "span",
	}

	cases := map[string]func(p *Provider){
		"missing id":         func(p *Provider) { p.ID = "" },
		"relative listing":   func(p *Provider) { p.ListingURL = "/list" },
		"unknown strategy":   func(p *Provider) { p.FetchStrategy = "carrier-pigeon" },
		"missing row":        func(p *Provider) { p.RowSelector = "" },
		"missing title":      func(p *Provider) { p.TitleSelector = "" },
		"missing date":       func(p *Provider) { p.DateSelector = "" },
		"negative max items": func(p *Provider) { p.MaxItems = -1 },
		"relative base url":  func(p *Provider) { p.BaseURL = "example.com" },
	}

	for name, mutate := range cases {
		p := valid
		mutate(&p)
		_, err := NewRegistry(p)
		assert.Error(t, err, name)
	}

	_, err := NewRegistry(valid, valid)
	assert.ErrorContains(t, err, "duplicate provider id")

	_, err = NewRegistry(valid)
	assert.NoError(t, err)
}

func TestLoadRegistryErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadRegistry(writeFile(t, "empty.yaml", "providers: []\n"))
	assert.ErrorContains(t, err, "no providers")

	_, err = LoadRegistry(writeFile(t, "broken.json", "{not json"))
	assert.Error(t, err)
}
