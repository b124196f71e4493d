package rss

import (
	"bytes"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
)

// Item gofeed 读回来的一条记录
type Item struct {
	Title       string
	Link        string
	GUID        string
	Description string
	Author      string
	Categories  []string
	PublishedAt time.Time
}

// Parse 用 gofeed 读回生成的文档，写文件前用来确认输出能被阅读器正常解析
func Parse(data []byte) ([]Item, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		item := Item{
			Title:       it.Title,
			Link:        it.Link,
			GUID:        it.GUID,
			Description: it.Description,
			Categories:  it.Categories,
		}
		if it.PublishedParsed != nil {
			item.PublishedAt = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			item.PublishedAt = *it.UpdatedParsed
		}
		if it.Author != nil {
			item.Author = it.Author.Name
		}
		items = append(items, item)
	}
	return items, nil
}

// Links 按文档顺序返回条目链接
func Links(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Link)
	}
	return out
}
