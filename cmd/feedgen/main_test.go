package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/LJTian/FeedHub/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliConfig = `
feeds:
  - name: news
    link: https://example.com/news/
    input: news.html
    selectors:
      item: div.card
      title: h3
      link: a@href
      date: span.date
  - name: empty
    link: https://example.com/empty/
    input: empty.html
    selectors:
      item: div.card
      title: h3
      link: a@href
`

const newsHTML = `<div class="card"><h3>Launch</h3><a href="/news/launch">more</a><span class="date">Nov 7, 2025</span></div>
<div class="card"><h3>Update</h3><a href="/news/update">more</a><span class="date">Oct 1, 2025</span></div>`

func writeFixtures(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"POSTGRES_DSN", "REDIS_ADDR", "FEEDGEN_OUTPUT_DIR", "LOG_FILE"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	files := map[string]string{
		"feeds.yaml": cliConfig,
		"news.html":  newsHTML,
		"empty.html": `<p>no cards</p>`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestRunGeneratesNamedFeed(t *testing.T) {
	dir := writeFixtures(t)
	out := filepath.Join(dir, "out")

	err := run([]string{"--config", filepath.Join(dir, "feeds.yaml"), "--output-dir", out, "--log-level", "error", "news"}, &bytes.Buffer{})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, "feed_news.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://example.com/news/launch")

	_, err = os.Stat(filepath.Join(out, "feed_empty.xml"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunReportsParseError(t *testing.T) {
	dir := writeFixtures(t)

	err := run([]string{"-c", filepath.Join(dir, "feeds.yaml"), "-o", filepath.Join(dir, "out"), "--log-level", "error"}, &bytes.Buffer{})
	require.Error(t, err)
	var pe *feed.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "empty", pe.Feed)
}

func TestRunUnknownFeed(t *testing.T) {
	dir := writeFixtures(t)
	err := run([]string{"-c", filepath.Join(dir, "feeds.yaml"), "--log-level", "error", "missing"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown feed "missing"`)
}

func TestRunMissingConfig(t *testing.T) {
	t.Setenv("LOG_FILE", "")
	err := run([]string{"-c", filepath.Join(t.TempDir(), "nope.yaml"), "--log-level", "error"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunList(t *testing.T) {
	dir := writeFixtures(t)
	var out bytes.Buffer
	require.NoError(t, run([]string{"-c", filepath.Join(dir, "feeds.yaml"), "--list", "--log-level", "error"}, &out))
	assert.Contains(t, out.String(), "NAME")
	assert.Contains(t, out.String(), "news")
	assert.Contains(t, out.String(), "feed_empty.xml")
}
