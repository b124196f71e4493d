package extractor

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestParseDateFormats(t *testing.T) {
	now := fixedNow()
	want := time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{
		"Nov 7, 2025",
		"November 7, 2025",
		"2025-11-07",
		"11/07/2025",
		"07 Nov 2025",
		"7 November 2025",
		"Nov 07 2025",
		"November 07 2025",
		"  Nov   7,  2025 ",
	} {
		got, ok := ParseDate(in, nil, time.UTC, now)
		require.True(t, ok, in)
		assert.True(t, want.Equal(got), "%s -> %v", in, got)
	}
}

func TestParseDateWithoutYear(t *testing.T) {
	now := fixedNow() // 2024-06-15

	got, ok := ParseDate("Mar 3", nil, time.UTC, now)
	require.True(t, ok)
	assert.True(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC).Equal(got), got.String())

	// 补当前年份会落在未来，应当算去年
	got, ok = ParseDate("December 20", nil, time.UTC, now)
	require.True(t, ok)
	assert.True(t, time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC).Equal(got), got.String())
}

func TestParseDateLeapDayWithoutYear(t *testing.T) {
	cases := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		// 今年是闰年但 2 月 29 日还没到
		{time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2101, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2096, 2, 29, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, ok := ParseDate("Feb 29", nil, time.UTC, c.now)
		require.True(t, ok, c.now.String())
		assert.True(t, c.want.Equal(got), "now=%v got=%v", c.now, got)
		assert.Equal(t, time.February, got.Month())
	}
}

func TestParseDateCustomLayoutAndSeparator(t *testing.T) {
	now := fixedNow()

	got, ok := ParseDate("2024年05月06日", []string{"2006年01月02日"}, time.UTC, now)
	require.True(t, ok)
	assert.True(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC).Equal(got))

	got, ok = ParseDate("Jan 9, 2024 · Research", nil, time.UTC, now)
	require.True(t, ok)
	assert.True(t, time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC).Equal(got))
}

func TestParseDateLocation(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	got, ok := ParseDate("2024-01-02", nil, loc, fixedNow())
	require.True(t, ok)
	assert.True(t, time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC).Equal(got))
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "read more"} {
		_, ok := ParseDate(in, nil, time.UTC, fixedNow())
		assert.False(t, ok, in)
	}
}
