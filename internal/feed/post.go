package feed

import "time"

// PostRecord 一条从列表页解析出来的文章，Link 是同一 feed 内的唯一键
type PostRecord struct {
	Title       string
	Link        string
	PublishedAt time.Time
	Summary     string
	Author      string
	Category    string
	// Undated 表示页面上没有可解析的日期，PublishedAt 为兜底时间
	Undated bool
}

// Links 按顺序返回所有记录的链接
func Links(records []PostRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Link)
	}
	return out
}
