package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/LJTian/FeedHub/internal/config"
	"github.com/LJTian/FeedHub/internal/generator"
	"github.com/LJTian/FeedHub/internal/logger"
	"github.com/LJTian/FeedHub/internal/storage"
	"github.com/alecthomas/kong"
)

type CLI struct {
	Config    string        `kong:"short='c',help='Path to the feeds YAML config.',default='feeds.yaml'"`
	OutputDir string        `kong:"short='o',help='Directory for generated feeds, overrides output_dir.'"`
	LogLevel  string        `kong:"help='Log level: debug, info, warn, error.',default='info',env='LOG_LEVEL'"`
	LogFile   string        `kong:"help='Also write logs to this file, rotated.',env='LOG_FILE'"`
	Timeout   time.Duration `kong:"help='Deadline for the whole run.',default='5m'"`
	List      bool          `kong:"help='List configured feeds and exit.'"`
	Names     []string      `kong:"arg,optional,help='Feeds to generate, all when omitted.'"`
}

// 一次性生成 feed 的命令行入口，由 CI 定时调用
func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "feedgen: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("feedgen"),
		kong.Description("Generate RSS feeds from HTML listing pages."),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}
	if _, err := parser.Parse(args); err != nil {
		return err
	}

	if err := logger.Init(logger.Config{Level: cli.LogLevel, File: cli.LogFile}); err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if cli.OutputDir != "" {
		cfg.OutputDir = cli.OutputDir
	}

	if cli.List {
		printFeeds(stdout, cfg)
		return nil
	}

	feeds, err := cfg.Select(cli.Names)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cli.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cli.Timeout)
		defer cancel()
	}

	g := generator.New(cfg)

	// 数据库和 Redis 都是可选的，连不上只降级不退出
	if cfg.PostgresDSN != "" {
		store, err := storage.Open(cfg.PostgresDSN)
		if err != nil {
			logger.Warnf("history disabled: %v", err)
		} else {
			defer store.Close()
			g.History = store
		}
	}
	if cfg.RedisAddr != "" {
		cache, err := storage.NewRedisPageCache(cfg.RedisAddr)
		if err != nil {
			logger.Warnf("page cache disabled: %v", err)
		} else {
			defer cache.Close()
			g.Cache = cache
		}
	}

	return g.Run(ctx, feeds).Err()
}

func printFeeds(w io.Writer, cfg *config.Config) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFETCH\tSOURCE\tOUTPUT")
	for _, f := range cfg.Feeds {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, f.Fetch, f.Target(), cfg.OutputFilename(f.Name))
	}
	tw.Flush()
}
