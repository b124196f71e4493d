package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/FeedHub/internal/logger"
	"github.com/chromedp/chromedp"
)

const defaultBrowserTimeout = 30 * time.Second

// BrowserFetcher 用 headless Chrome 渲染页面，适合列表由 JS 填充的站点。
// 每次 Fetch 启动一个独立的浏览器实例，feed 之间互不影响
type BrowserFetcher struct {
	UserAgent string
	Timeout   time.Duration
}

func NewBrowserFetcher(userAgent string, timeout time.Duration) *BrowserFetcher {
	return &BrowserFetcher{UserAgent: userAgent, Timeout: timeout}
}

func (b *BrowserFetcher) Name() string {
	return "browser"
}

func (b *BrowserFetcher) Fetch(ctx context.Context, target string) (string, error) {
	logger.Debugf("fetch %s via %s", target, b.Name())

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if b.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.UserAgent))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// 渲染比普通请求慢，超时至少给到默认值
	timeout := b.Timeout
	if timeout < defaultBrowserTimeout {
		timeout = defaultBrowserTimeout
	}
	runCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(`document.documentElement.outerHTML`, &html),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", target, err)
	}
	if strings.TrimSpace(html) == "" {
		return "", fmt.Errorf("render %s: empty document", target)
	}
	return html, nil
}
