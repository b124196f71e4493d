package processor

import (
	"sort"
	"strings"

	"github.com/LJTian/FeedHub/internal/feed"
)

// SimpleProcessor 整理抽取结果：去重、按发布时间倒序、截断摘要
type SimpleProcessor struct {
	// SummaryMaxRunes 摘要最多保留的字符数，0 表示不截断
	SummaryMaxRunes int
	// MaxItems 排序后最多保留的条数，0 表示不限制
	MaxItems int
}

func NewSimpleProcessor(summaryMaxRunes, maxItems int) *SimpleProcessor {
	return &SimpleProcessor{SummaryMaxRunes: summaryMaxRunes, MaxItems: maxItems}
}

// Normalize 使用不截断、不限条数的默认处理器
func Normalize(records []feed.PostRecord) []feed.PostRecord {
	return (&SimpleProcessor{}).Process(records)
}

// Process 同一链接只保留最先出现的那条，再按 PublishedAt 倒序稳定排序。
// 对已经处理过的结果再调用一次得到相同序列
func (p *SimpleProcessor) Process(records []feed.PostRecord) []feed.PostRecord {
	out := make([]feed.PostRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for _, r := range records {
		if _, ok := seen[r.Link]; ok {
			continue
		}
		seen[r.Link] = struct{}{}

		r.Title = strings.Join(strings.Fields(r.Title), " ")
		r.Summary = truncateRunes(strings.TrimSpace(r.Summary), p.SummaryMaxRunes)
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})

	if p.MaxItems > 0 && len(out) > p.MaxItems {
		out = out[:p.MaxItems]
	}
	return out
}

// truncateRunes 按 rune 截断，结果连同省略号不超过 limit 个字符；limit <= 0 时原样返回
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return strings.TrimSpace(string(rs[:limit-1])) + "…"
}
