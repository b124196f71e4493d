package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/LJTian/FeedHub/internal/config"
	"github.com/LJTian/FeedHub/internal/logger"
	"github.com/gocolly/colly/v2"
)

// HTTPFetcher 用 colly 抓取列表页，返回响应体原文，非 2xx 视为失败
type HTTPFetcher struct {
	UserAgent string
	Timeout   time.Duration

	transport http.RoundTripper
}

func NewHTTPFetcher(userAgent string, timeout time.Duration) *HTTPFetcher {
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	return &HTTPFetcher{UserAgent: userAgent, Timeout: timeout}
}

func (h *HTTPFetcher) Name() string {
	return "http"
}

func (h *HTTPFetcher) Fetch(ctx context.Context, target string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	logger.Debugf("fetch %s via %s", target, h.Name())

	c := colly.NewCollector(
		colly.UserAgent(h.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.WithTransport(ctxTransport{ctx: ctx, base: h.transport})
	if h.Timeout > 0 {
		c.SetRequestTimeout(h.Timeout)
	}

	var (
		body   []byte
		status int
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	err := c.Visit(target)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("fetch %s: %w", target, ctxErr)
	}
	if err != nil {
		if status != 0 {
			return "", fmt.Errorf("fetch %s: status %d: %w", target, status, err)
		}
		return "", fmt.Errorf("fetch %s: %w", target, err)
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("fetch %s: unexpected status %d", target, status)
	}
	if len(body) == 0 {
		return "", errors.New("fetch " + target + ": empty body")
	}
	return string(body), nil
}

// ctxTransport 把调用方的 ctx 挂到 colly 发出的每个请求上，取消或超时会中断进行中的请求
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req.WithContext(t.ctx))
}

// FileFetcher 读取本地 HTML 快照，同样走 colly，只是换成 file:// transport
type FileFetcher struct {
	inner *HTTPFetcher
}

func NewFileFetcher() *FileFetcher {
	t := &http.Transport{}
	t.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
	return &FileFetcher{inner: &HTTPFetcher{UserAgent: config.DefaultUserAgent, transport: t}}
}

func (f *FileFetcher) Name() string {
	return "file"
}

// Fetch target 是本地路径，相对路径按当前目录解析
func (f *FileFetcher) Fetch(ctx context.Context, target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", target, err)
	}
	return f.inner.Fetch(ctx, "file://"+filepath.ToSlash(abs))
}
