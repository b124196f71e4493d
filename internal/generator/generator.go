package generator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LJTian/FeedHub/internal/collector"
	"github.com/LJTian/FeedHub/internal/config"
	"github.com/LJTian/FeedHub/internal/extractor"
	"github.com/LJTian/FeedHub/internal/feed"
	"github.com/LJTian/FeedHub/internal/logger"
	"github.com/LJTian/FeedHub/internal/processor"
	"github.com/LJTian/FeedHub/internal/rss"
	"github.com/LJTian/FeedHub/internal/storage"
)

// History 可选的历史记录，storage.Store 是 PostgreSQL 实现
type History interface {
	FirstSeen(ctx context.Context, feedName string, records []feed.PostRecord) ([]feed.PostRecord, error)
	RecordRun(ctx context.Context, run *storage.Run) error
}

type Generator struct {
	cfg *config.Config

	Extractor *extractor.Extractor
	// NewFetcher 为每个 feed 创建抓取器，测试里可以替换
	NewFetcher func(f config.FeedConfig) collector.Fetcher
	Cache      collector.PageCache
	History    History
	Now        func() time.Time
}

func New(cfg *config.Config) *Generator {
	g := &Generator{
		cfg:       cfg,
		Extractor: extractor.New(),
		Now:       config.Now,
	}
	g.NewFetcher = func(f config.FeedConfig) collector.Fetcher {
		return collector.ForFeed(f, cfg.Timeout)
	}
	return g
}

// Run 并发生成每个 feed，feed 之间互不影响，某个失败不会中断其他的
func (g *Generator) Run(ctx context.Context, feeds []config.FeedConfig) Report {
	logger.Infof("start generate job: feeds=%d", len(feeds))
	start := g.Now()

	results := make([]Result, len(feeds))
	var wg sync.WaitGroup
	for i, f := range feeds {
		wg.Add(1)
		go func(i int, f config.FeedConfig) {
			defer wg.Done()
			results[i] = g.runFeed(ctx, f)
		}(i, f)
	}
	wg.Wait()

	report := Report{Results: results, Duration: g.Now().Sub(start)}
	report.Log()
	return report
}

func (g *Generator) fetcherFor(f config.FeedConfig) collector.Fetcher {
	fetcher := g.NewFetcher(f)
	if g.Cache != nil && f.Fetch != config.FetchFile {
		fetcher = collector.NewCachedFetcher(fetcher, g.Cache, g.cfg.CacheTTL)
	}
	return fetcher
}

func (g *Generator) runFeed(ctx context.Context, f config.FeedConfig) Result {
	res := Result{Feed: f.Name}
	started := g.Now()

	stats, err := g.generate(ctx, f, &res)
	if err != nil {
		res.Err = err
		logger.Errorf("feed %s failed: %v", f.Name, err)
	} else {
		logger.Infof("feed %s done, items=%d undated=%d path=%s", f.Name, res.Items, res.Undated, res.Path)
	}
	res.Duration = g.Now().Sub(started)

	if g.History != nil {
		run := &storage.Run{
			Feed:       f.Name,
			StartedAt:  started,
			FinishedAt: started.Add(res.Duration),
			Items:      res.Items,
			Stats:      stats,
		}
		if err != nil {
			run.Error = err.Error()
		}
		if rerr := g.History.RecordRun(ctx, run); rerr != nil {
			logger.Warnf("feed %s: %v", f.Name, rerr)
		}
	}
	return res
}

// generate 抓取、抽取、整理、序列化、校验并写文件
func (g *Generator) generate(ctx context.Context, f config.FeedConfig, res *Result) (map[string]any, error) {
	stats := map[string]any{"fetch": f.Fetch}

	fetcher := g.fetcherFor(f)
	html, err := fetcher.Fetch(ctx, f.Target())
	if err != nil {
		return stats, fmt.Errorf("feed %s: %w", f.Name, err)
	}
	stats["html_bytes"] = len(html)

	records, err := g.Extractor.Extract(html, f)
	if err != nil {
		return stats, err
	}
	stats["extracted"] = len(records)

	if g.History != nil {
		withHistory, err := g.History.FirstSeen(ctx, f.Name, records)
		if err != nil {
			logger.Warnf("feed %s: first-seen lookup skipped: %v", f.Name, err)
		} else {
			records = withHistory
		}
	}

	records = processor.NewSimpleProcessor(f.SummaryMaxRunes, f.MaxItems).Process(records)
	if len(records) == 0 {
		logger.Warnf("feed %s: no records, writing an empty feed", f.Name)
	}

	meta := rss.Channel{
		Feed:        f.Name,
		Title:       f.Title,
		Link:        f.Link,
		Description: f.Description,
		Language:    f.Language,
		SelfURL:     g.cfg.SelfURL(f.Name),
	}
	if len(records) > 0 {
		meta.BuildDate = records[0].PublishedAt
	}

	data, err := rss.Serialize(meta, records)
	if err != nil {
		return stats, err
	}
	if err := verify(data, records); err != nil {
		return stats, fmt.Errorf("feed %s: %w", f.Name, err)
	}

	path, err := rss.WriteFile(g.cfg.OutputDir, g.cfg.FilenameFormat, f.Name, data)
	if err != nil {
		return stats, fmt.Errorf("feed %s: %w", f.Name, err)
	}

	res.Path = path
	res.Items = len(records)
	for _, r := range records {
		if r.Undated {
			res.Undated++
		}
	}
	stats["items"] = res.Items
	stats["undated"] = res.Undated
	stats["bytes"] = len(data)
	return stats, nil
}

// verify 用 gofeed 读回刚生成的文档，链接集合必须和输入一致
func verify(data []byte, records []feed.PostRecord) error {
	items, err := rss.Parse(data)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if len(items) != len(records) {
		return fmt.Errorf("verify: parsed %d items, want %d", len(items), len(records))
	}
	want := make(map[string]struct{}, len(records))
	for _, r := range records {
		want[r.Link] = struct{}{}
	}
	for _, it := range items {
		if _, ok := want[it.Link]; !ok {
			return fmt.Errorf("verify: unexpected link %q", it.Link)
		}
	}
	return nil
}
