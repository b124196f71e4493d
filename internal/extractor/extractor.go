package extractor

import (
	"html"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LJTian/FeedHub/internal/config"
	"github.com/LJTian/FeedHub/internal/feed"
	"github.com/LJTian/FeedHub/internal/logger"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Extractor 按 FeedConfig 里的选择器把列表页 HTML 解析成 PostRecord
type Extractor struct {
	// Now 提供抽取时间，未解析出日期的文章以此兜底
	Now func() time.Time

	ugc   *bluemonday.Policy
	strip *bluemonday.Policy
}

func New() *Extractor {
	return &Extractor{
		Now:   config.Now,
		ugc:   bluemonday.UGCPolicy(),
		strip: bluemonday.StripTagsPolicy(),
	}
}

// Extract 使用默认 Extractor 解析
func Extract(htmlText string, cfg config.FeedConfig) ([]feed.PostRecord, error) {
	return New().Extract(htmlText, cfg)
}

// Extract 每个匹配 item 的元素最多产出一条记录。
// item 一个都没匹配到，或者 title/link 在所有条目里都取不到值时返回 *feed.ParseError
func (e *Extractor) Extract(htmlText string, cfg config.FeedConfig) ([]feed.PostRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, &feed.ParseError{Feed: cfg.Name, Field: "html", Err: err}
	}

	itemRules := cfg.Selectors[config.FieldItem]
	items := findItems(doc.Selection, itemRules)
	if items == nil {
		return nil, &feed.ParseError{Feed: cfg.Name, Field: config.FieldItem, Selector: itemRules.String()}
	}

	base := baseURL(cfg)
	self := trimSlash(cfg.SourceURL)
	now := e.Now()
	loc := cfg.Location()

	var (
		sawTitle, sawLink bool
		results           = make([]feed.PostRecord, 0, items.Length())
	)

	items.Each(func(i int, s *goquery.Selection) {
		title := e.value(s, cfg.Selectors[config.FieldTitle], false)
		rawLink := e.value(s, cfg.Selectors[config.FieldLink], false)
		link := resolveLink(base, rawLink)
		if title != "" {
			sawTitle = true
		}
		if link != "" {
			sawLink = true
		}
		if title == "" || link == "" {
			logger.Debugf("feed %s: skip item %d, title=%q link=%q", cfg.Name, i, title, rawLink)
			return
		}
		if self != "" && trimSlash(link) == self {
			logger.Debugf("feed %s: skip item %d, link points back at the listing", cfg.Name, i)
			return
		}
		if cfg.MinTitleRunes > 0 && utf8.RuneCountInString(title) < cfg.MinTitleRunes {
			logger.Debugf("feed %s: skip item %d, title %q shorter than %d", cfg.Name, i, title, cfg.MinTitleRunes)
			return
		}

		rec := feed.PostRecord{
			Title:    title,
			Link:     link,
			Summary:  e.value(s, cfg.Selectors[config.FieldSummary], true),
			Author:   cleanAuthor(e.value(s, cfg.Selectors[config.FieldAuthor], false)),
			Category: e.value(s, cfg.Selectors[config.FieldCategory], false),
		}
		if rec.Author == "" {
			rec.Author = cfg.Author
		}
		if rec.Category == "" {
			rec.Category = cfg.Category
		}

		dateText := e.value(s, cfg.Selectors[config.FieldDate], false)
		if t, ok := ParseDate(dateText, cfg.DateFormats, loc, now); ok {
			rec.PublishedAt = t
		} else {
			if dateText != "" {
				logger.Warnf("feed %s: could not parse date %q for %s", cfg.Name, dateText, link)
			}
			if cfg.RequireDate {
				logger.Debugf("feed %s: skip undated item %s", cfg.Name, link)
				return
			}
			rec.PublishedAt = now
			rec.Undated = true
		}

		results = append(results, rec)
	})

	switch {
	case !sawTitle:
		return nil, &feed.ParseError{Feed: cfg.Name, Field: config.FieldTitle, Selector: cfg.Selectors[config.FieldTitle].String()}
	case !sawLink:
		return nil, &feed.ParseError{Feed: cfg.Name, Field: config.FieldLink, Selector: cfg.Selectors[config.FieldLink].String()}
	}

	logger.Infof("feed %s: extracted %d records from %d items", cfg.Name, len(results), items.Length())
	return results, nil
}

// baseURL 相对链接的基准，依次取 base_url、source_url、link
func baseURL(cfg config.FeedConfig) *url.URL {
	for _, raw := range []string{cfg.BaseURL, cfg.SourceURL, cfg.Link} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err == nil && u.IsAbs() {
			return u
		}
	}
	return nil
}

// findItems 依次尝试 item 规则，返回第一个非空的匹配集合，全都没匹配到时返回 nil
func findItems(root *goquery.Selection, rules config.RuleList) *goquery.Selection {
	for _, r := range rules {
		if r.CSS == "" {
			continue
		}
		if sel := root.Find(r.CSS); sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// value 依次尝试规则，取第一个非空值。keepHTML 为 true 时 @html 保留清洗后的标签
func (e *Extractor) value(s *goquery.Selection, rules config.RuleList, keepHTML bool) string {
	for _, r := range rules {
		sel := s
		for n := 0; n < r.Up; n++ {
			sel = sel.Parent()
		}
		if r.CSS != "" {
			sel = sel.Find(r.CSS).First()
		}
		if sel.Length() == 0 {
			continue
		}

		var v string
		switch r.Attr {
		case "":
			v = collapseSpace(sel.Text())
		case config.AttrHTML:
			inner, err := sel.Html()
			if err != nil {
				continue
			}
			if keepHTML {
				v = strings.TrimSpace(e.ugc.Sanitize(inner))
			} else {
				v = collapseSpace(html.UnescapeString(e.strip.Sanitize(inner)))
			}
		default:
			attr, ok := sel.Attr(r.Attr)
			if !ok {
				continue
			}
			v = collapseSpace(attr)
		}
		if v != "" {
			return v
		}
	}
	return ""
}

func resolveLink(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if raw == "" || strings.HasPrefix(raw, "#") ||
		strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil && base.IsAbs() {
		u = base.ResolveReference(u)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

// cleanAuthor 去掉 "作者 · 日期" 这类写法里分隔符后面的部分
func cleanAuthor(s string) string {
	for _, sep := range []string{"·", "•", "|"} {
		if i := strings.Index(s, sep); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func trimSlash(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}
