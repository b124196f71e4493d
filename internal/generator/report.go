package generator

import (
	"errors"
	"time"

	"github.com/LJTian/FeedHub/internal/logger"
)

// Result 单个 feed 的生成结果
type Result struct {
	Feed     string
	Path     string
	Items    int
	Undated  int
	Duration time.Duration
	Err      error
}

// Report 一次运行里所有 feed 的结果，顺序与输入一致
type Report struct {
	Results  []Result
	Duration time.Duration
}

func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Err 合并所有失败，errors.As 仍能取到 ParseError 等具体类型
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, res.Err)
	}
	return errors.Join(errs...)
}

// Log 输出一条汇总和每个 feed 的明细
func (r Report) Log() {
	failed := len(r.Failed())
	logger.Infof("generate job done: total=%d ok=%d failed=%d took=%s",
		len(r.Results), len(r.Results)-failed, failed, r.Duration.Round(time.Millisecond))
	for _, res := range r.Results {
		if res.Err != nil {
			logger.Infof("  %-24s FAILED  %v", res.Feed, res.Err)
			continue
		}
		logger.Infof("  %-24s ok      items=%d undated=%d", res.Feed, res.Items, res.Undated)
	}
}
