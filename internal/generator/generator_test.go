package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/LJTian/FeedHub/internal/collector"
	"github.com/LJTian/FeedHub/internal/config"
	"github.com/LJTian/FeedHub/internal/feed"
	"github.com/LJTian/FeedHub/internal/rss"
	"github.com/LJTian/FeedHub/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listing = `<html><body>
<article class="post"><h2><a href="/blog/jan">January post</a></h2><time>2024-01-01</time><p class="excerpt">About January.</p></article>
<article class="post"><h2><a href="/blog/mar">March post</a></h2><time>2024-03-01</time></article>
<article class="post"><h2><a href="/blog/feb">February post</a></h2><time>2024-02-01</time></article>
<article class="post"><h2><a href="/blog/jan">January post again</a></h2><time>2024-01-01</time></article>
</body></html>`

const testConfig = `
filename_format: "feed_{name}.xml"
public_url: "https://example.github.io/feeds"
feeds:
  - name: blog
    title: Example Blog
    link: https://example.com/blog/
    input: listing.html
    base_url: https://example.com/blog/
    selectors:
      item: article.post
      title: h2 a
      link: h2 a@href
      date: time
      summary: p.excerpt
  - name: broken
    link: https://example.com/broken/
    input: broken.html
    selectors:
      item: div.never
      title: h2
      link: a@href
`

func setup(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "listing.html"), []byte(listing), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.html"), []byte("<p>redesigned</p>"), 0o644))

	cfg, err := config.Parse([]byte(testConfig), dir)
	require.NoError(t, err)
	cfg.OutputDir = filepath.Join(dir, "out")
	return cfg, dir
}

func TestRunEndToEnd(t *testing.T) {
	cfg, _ := setup(t)
	feeds, err := cfg.Select([]string{"blog"})
	require.NoError(t, err)

	report := New(cfg).Run(context.Background(), feeds)
	require.NoError(t, report.Err())
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	assert.Equal(t, 3, res.Items)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "feed_blog.xml"), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	items, err := rss.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com/blog/mar",
		"https://example.com/blog/feb",
		"https://example.com/blog/jan",
	}, rss.Links(items))
	assert.Equal(t, "January post", items[2].Title, "first duplicate wins")
	assert.Equal(t, "About January.", items[2].Description)
	assert.Contains(t, string(data), "https://example.github.io/feeds/feed_blog.xml")
	assert.Contains(t, string(data), "<lastBuildDate>Fri, 01 Mar 2024 00:00:00 +0000</lastBuildDate>")
}

func TestRunIsolatesFailures(t *testing.T) {
	cfg, _ := setup(t)

	report := New(cfg).Run(context.Background(), cfg.Feeds)
	require.Len(t, report.Results, 2)
	assert.NoError(t, report.Results[0].Err)
	assert.Error(t, report.Results[1].Err)

	err := report.Err()
	require.Error(t, err)
	var pe *feed.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "broken", pe.Feed)
	assert.Equal(t, config.FieldItem, pe.Field)

	_, statErr := os.Stat(filepath.Join(cfg.OutputDir, "feed_broken.xml"))
	assert.True(t, os.IsNotExist(statErr), "failed feed writes nothing")
	_, statErr = os.Stat(filepath.Join(cfg.OutputDir, "feed_blog.xml"))
	assert.NoError(t, statErr)
}

type stubFetcher struct {
	html string
	err  error
}

func (s stubFetcher) Name() string { return "stub" }

func (s stubFetcher) Fetch(context.Context, string) (string, error) {
	return s.html, s.err
}

func TestRunFetchError(t *testing.T) {
	cfg, _ := setup(t)
	g := New(cfg)
	g.NewFetcher = func(config.FeedConfig) collector.Fetcher {
		return stubFetcher{err: errors.New("connection refused")}
	}

	report := g.Run(context.Background(), cfg.Feeds[:1])
	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "connection refused")
	assert.Len(t, report.Failed(), 1)
}

type fakeHistory struct {
	mu        sync.Mutex
	firstSeen map[string]time.Time
	runs      []*storage.Run
}

func (h *fakeHistory) FirstSeen(_ context.Context, _ string, records []feed.PostRecord) ([]feed.PostRecord, error) {
	out := make([]feed.PostRecord, len(records))
	copy(out, records)
	for i := range out {
		if at, ok := h.firstSeen[out[i].Link]; ok && out[i].Undated {
			out[i].PublishedAt = at
		}
	}
	return out, nil
}

func (h *fakeHistory) RecordRun(_ context.Context, run *storage.Run) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, run)
	return nil
}

func TestRunUsesHistoryForUndatedPosts(t *testing.T) {
	cfg, _ := setup(t)
	page := `<ul>
<li><a href="https://example.com/blog/old">Old undated</a></li>
<li><a href="https://example.com/blog/new">New undated</a></li>
</ul>`
	cfg.Feeds[0].Selectors = config.Selectors{
		config.FieldItem:  {config.ParseRule("li")},
		config.FieldTitle: {config.ParseRule("a")},
		config.FieldLink:  {config.ParseRule("a@href")},
	}

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	hist := &fakeHistory{firstSeen: map[string]time.Time{
		"https://example.com/blog/old": time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}}

	g := New(cfg)
	g.Extractor.Now = func() time.Time { return now }
	g.History = hist
	g.NewFetcher = func(config.FeedConfig) collector.Fetcher { return stubFetcher{html: page} }

	report := g.Run(context.Background(), cfg.Feeds[:1])
	require.NoError(t, report.Err())
	assert.Equal(t, 2, report.Results[0].Undated)

	data, err := os.ReadFile(report.Results[0].Path)
	require.NoError(t, err)
	items, err := rss.Parse(data)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "https://example.com/blog/new", items[0].Link)
	assert.True(t, now.Equal(items[0].PublishedAt))
	assert.True(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC).Equal(items[1].PublishedAt))

	require.Len(t, hist.runs, 1)
	assert.Equal(t, "blog", hist.runs[0].Feed)
	assert.Equal(t, 2, hist.runs[0].Items)
	assert.Empty(t, hist.runs[0].Error)
	assert.Equal(t, 2, hist.runs[0].Stats["undated"])
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key, html string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = html
	return nil
}

func TestRunSkipsCacheForLocalFiles(t *testing.T) {
	cfg, _ := setup(t)
	cache := &mapCache{data: map[string]string{}}
	g := New(cfg)
	g.Cache = cache

	report := g.Run(context.Background(), cfg.Feeds[:1])
	require.NoError(t, report.Err())
	assert.Empty(t, cache.data)
}

func TestVerifyDetectsMismatch(t *testing.T) {
	records := []feed.PostRecord{{Title: "a", Link: "https://example.com/a", PublishedAt: time.Now()}}
	data, err := rss.Serialize(rss.Channel{Feed: "x", Link: "https://example.com/"}, records)
	require.NoError(t, err)

	require.NoError(t, verify(data, records))
	records[0].Link = "https://example.com/b"
	assert.Error(t, verify(data, records))
	assert.Error(t, verify(data, append(records, records[0])))
}
