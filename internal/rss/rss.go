package rss

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"

	"github.com/LJTian/FeedHub/internal/feed"
)

const (
	nsDC   = "http://purl.org/dc/elements/1.1/"
	nsAtom = "http://www.w3.org/2005/Atom"

	DefaultGenerator = "FeedHub feedgen"
)

// Channel 频道级元数据，Feed 是配置里的站点名，只用于错误信息
type Channel struct {
	Feed        string
	Title       string
	Link        string
	Description string
	Language    string
	// SelfURL feed 文件发布后的地址，非空时输出 atom:link rel="self"
	SelfURL   string
	Generator string
	// BuildDate 为零值时不输出 lastBuildDate
	BuildDate time.Time
}

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	DC      string     `xml:"xmlns:dc,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	Generator     string    `xml:"generator,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	AtomLink      *atomLink `xml:"atom:link,omitempty"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	GUID        rssGUID `xml:"guid"`
	PubDate     string  `xml:"pubDate"`
	Description string  `xml:"description"`
	Category    string  `xml:"category,omitempty"`
	Creator     string  `xml:"dc:creator,omitempty"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Serialize 把记录按给定顺序渲染成 RSS 2.0 文档。
// 先检查全部记录，任何一条缺 link 或 title 都返回 SerializationError，不产生输出
func Serialize(meta Channel, records []feed.PostRecord) ([]byte, error) {
	if err := check(meta, records); err != nil {
		return nil, err
	}

	doc := rssDoc{
		Version: "2.0",
		DC:      nsDC,
		Atom:    nsAtom,
		Channel: rssChannel{
			Title:       orString(meta.Title, meta.Feed),
			Link:        meta.Link,
			Description: orString(meta.Description, orString(meta.Title, meta.Feed)),
			Language:    meta.Language,
			Generator:   orString(meta.Generator, DefaultGenerator),
			Items:       make([]rssItem, 0, len(records)),
		},
	}
	if !meta.BuildDate.IsZero() {
		doc.Channel.LastBuildDate = formatDate(meta.BuildDate)
	}
	if meta.SelfURL != "" {
		doc.Channel.AtomLink = &atomLink{Href: meta.SelfURL, Rel: "self", Type: "application/rss+xml"}
	}

	for _, r := range records {
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       r.Title,
			Link:        r.Link,
			GUID:        rssGUID{IsPermaLink: "true", Value: r.Link},
			PubDate:     formatDate(r.PublishedAt),
			Description: orString(r.Summary, r.Title),
			Category:    r.Category,
			Creator:     r.Author,
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func check(meta Channel, records []feed.PostRecord) error {
	if strings.TrimSpace(meta.Link) == "" {
		return &feed.SerializationError{Feed: meta.Feed, Index: -1, Field: "link"}
	}
	for i, r := range records {
		if strings.TrimSpace(r.Link) == "" {
			return &feed.SerializationError{Feed: meta.Feed, Index: i, Field: "link"}
		}
		if strings.TrimSpace(r.Title) == "" {
			return &feed.SerializationError{Feed: meta.Feed, Index: i, Field: "title"}
		}
	}
	return nil
}

// RFC 822 日期，四位年份，统一用 UTC 保证输出稳定
func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC1123Z)
}

func orString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
