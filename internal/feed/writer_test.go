package feed

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/pressfeed/internal/domain"
)

var fixedNow = time.Date(2025, 4, 25, 3, 4, 5, 0, time.UTC)

func testMeta() domain.FeedMeta {
	return domain.FeedMeta{
		Title:       "第一三共",
		Link:        "https://www.daiichisankyo.co.jp/media/press_release/",
		Description: "第一三共プレスリリースの更新履歴",
		Language:    "ja",
	}
}

func testItems() []domain.FeedItem {
	return []domain.FeedItem{
		{
			Title:       "新薬の承認取得について",
			Link:        "https://www.daiichisankyo.co.jp/media/press_release/123.html",
			Description: "研究開発：新薬の承認取得について",
			Category:    "研究開発",
			PublishedAt: time.Date(2025, 4, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			Title:       "決算説明会 <資料> & 動画",
			Link:        "https://www.daiichisankyo.co.jp/media/press_release/120.html",
			Description: "決算説明会 <資料> & 動画",
			PublishedAt: time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		},
	}
}

func parseFile(t *testing.T, path string) *gofeed.Feed {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	parsed, err := gofeed.NewParser().Parse(f)
	require.NoError(t, err)
	return parsed
}

func TestWriteProducesValidRSS(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rss_output", "DaiichiSankyo.xml")
	w := NewWriter(nil, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, w.Write(path, testMeta(), testItems()))

	parsed := parseFile(t, path)
	assert.Equal(t, "rss", parsed.FeedType)
	assert.Equal(t, "2.0", parsed.FeedVersion)
	assert.Equal(t, "第一三共", parsed.Title)
	assert.Equal(t, "ja", parsed.Language)
	assert.Equal(t, DefaultGenerator, parsed.Generator)
	require.Len(t, parsed.Items, 2)

	first := parsed.Items[0]
	assert.Equal(t, "新薬の承認取得について", first.Title)
	assert.Equal(t, "https://www.daiichisankyo.co.jp/media/press_release/123.html#20250424", first.GUID)
	assert.Equal(t, "研究開発：新薬の承認取得について", first.Description)
	require.NotNil(t, first.PublishedParsed)
	assert.True(t, first.PublishedParsed.Equal(time.Date(2025, 4, 24, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, "決算説明会 <資料> & 動画", parsed.Items[1].Title)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `isPermaLink="false"`)
	assert.Contains(t, string(raw), "<lastBuildDate>Fri, 25 Apr 2025 03:04:05 +0000</lastBuildDate>")
	assert.Contains(t, string(raw), "<pubDate>Thu, 24 Apr 2025 00:00:00 +0000</pubDate>")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerm), info.Mode().Perm())
}

func TestWriteEmptyFeed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.xml")
	require.NoError(t, NewWriter(nil).Write(path, testMeta(), nil))

	parsed := parseFile(t, path)
	assert.Equal(t, "第一三共", parsed.Title)
	assert.Empty(t, parsed.Items)
}

func TestWriteIsDeterministicForFixedClock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "feed.xml")
	w := NewWriter(nil, WithClock(func() time.Time { return fixedNow }))

	require.NoError(t, w.Write(path, testMeta(), testItems()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, w.Write(path, testMeta(), testItems()))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteReportsMkdirFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := NewWriter(nil).Write(filepath.Join(blocker, "feed.xml"), testMeta(), nil)
	require.Error(t, err)

	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, "mkdir", werr.Op)
}

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	rss := NewWriter(nil, WithClock(func() time.Time { return fixedNow })).Build(testMeta(), testItems()[:1])
	assert.Equal(t, DefaultDocs, rss.Docs)
	assert.Equal(t, DefaultGenerator, rss.Generator)
	require.Len(t, rss.Items, 1)
	assert.Equal(t, "研究開発", rss.Items[0].Category)

	meta := testMeta()
	meta.Generator = "custom"
	assert.Equal(t, "custom", NewWriter(nil).Build(meta, nil).Generator)
}
