package collector

import (
	"context"
	"time"

	"github.com/LJTian/FeedHub/internal/config"
)

// Fetcher 取回一个列表页的原始 HTML。不做重试，失败由调用方决定怎么处理
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, target string) (string, error)
}

// ForFeed 按 feed 的 fetch 模式选择 Fetcher
func ForFeed(f config.FeedConfig, timeout time.Duration) Fetcher {
	switch f.Fetch {
	case config.FetchFile:
		return NewFileFetcher()
	case config.FetchBrowser:
		return NewBrowserFetcher(f.UserAgent, timeout)
	default:
		return NewHTTPFetcher(f.UserAgent, timeout)
	}
}
