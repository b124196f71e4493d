package extractor

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// 列表页上常见的日期写法，没有年份的按当前年份处理
var builtinLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"1/2/2006",
	time.RFC1123Z,
	time.RFC1123,
	"Jan 2",
	"January 2",
}

// ParseDate 依次尝试自定义格式、内置格式和 dateparse。
// 文本里带 "·" 之类分隔符时（如 "Nov 7 · Research"）会逐段再试一次
func ParseDate(text string, layouts []string, loc *time.Location, now time.Time) (time.Time, bool) {
	text = collapseSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	candidates := []string{text}
	for _, sep := range []string{"·", "•", "|"} {
		if strings.Contains(text, sep) {
			for _, part := range strings.Split(text, sep) {
				if part = strings.TrimSpace(part); part != "" {
					candidates = append(candidates, part)
				}
			}
		}
	}

	for _, c := range candidates {
		if t, ok := parseOne(c, layouts, loc, now); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseOne(text string, layouts []string, loc *time.Location, now time.Time) (time.Time, bool) {
	for _, group := range [][]string{layouts, builtinLayouts} {
		for _, layout := range group {
			t, err := time.ParseInLocation(layout, text, loc)
			if err != nil {
				continue
			}
			return fillYear(t, now.In(loc)), true
		}
	}
	if t, err := dateparse.ParseIn(text, loc); err == nil {
		return fillYear(t, now.In(loc)), true
	}
	return time.Time{}, false
}

// fillYear 给没有年份的日期补上年份；补当前年份后落在一天以后的算去年。
// 2 月 29 日取不晚于该年份的最近闰年
func fillYear(t, now time.Time) time.Time {
	if t.Year() != 0 {
		return t
	}
	year := now.Year()
	if t.Month() == time.February && t.Day() == 29 {
		for !isLeap(year) {
			year--
		}
	}
	out := time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, t.Location())
	if out.After(now.Add(24 * time.Hour)) {
		return fillYear(t, time.Date(year-1, 12, 31, 0, 0, 0, 0, now.Location()))
	}
	return out
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
