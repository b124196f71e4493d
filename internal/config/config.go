package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/LJTian/FeedHub/internal/logger"
	"gopkg.in/yaml.v3"
)

const (
	FetchHTTP    = "http"
	FetchBrowser = "browser"
	FetchFile    = "file"

	DefaultFilenameFormat = "feed_{name}.xml"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultTimeout        = 10 * time.Second
	defaultCacheTTL       = 10 * time.Minute
)

var feedNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Config 一次运行的全部配置，加载后只读
type Config struct {
	OutputDir      string        `yaml:"output_dir"`
	FilenameFormat string        `yaml:"filename_format"`
	UserAgent      string        `yaml:"user_agent"`
	Timeout        time.Duration `yaml:"timeout"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	// PublicURL feed 文件发布后所在目录的地址，用来生成 atom:link self
	PublicURL string `yaml:"public_url"`

	PostgresDSN string `yaml:"postgres_dsn"`
	RedisAddr   string `yaml:"redis_addr"`

	Feeds []FeedConfig `yaml:"feeds"`
}

// FeedConfig 描述一个站点：从哪里取 HTML、怎么找到每篇文章、输出叫什么名字
type FeedConfig struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Link        string `yaml:"link"`
	Language    string `yaml:"language"`

	SourceURL string `yaml:"source_url"`
	// Input 本地 HTML 文件，设置后不再访问网络
	Input     string `yaml:"input"`
	Fetch     string `yaml:"fetch"`
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`

	Selectors    Selectors `yaml:"selectors"`
	DateFormats  []string  `yaml:"date_formats"`
	DateLocation string    `yaml:"date_location"`

	Author          string `yaml:"author"`
	Category        string `yaml:"category"`
	RequireDate     bool   `yaml:"require_date"`
	MaxItems        int    `yaml:"max_items"`
	SummaryMaxRunes int    `yaml:"summary_max_runes"`
	// MinTitleRunes 标题少于这么多字符的条目视为导航或标签，直接跳过
	MinTitleRunes int `yaml:"min_title_runes"`
}

// Location 返回解析日期时使用的时区，默认 UTC
func (f FeedConfig) Location() *time.Location {
	if f.DateLocation == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(f.DateLocation)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Target 返回抓取目标：file 模式是本地路径，browser 模式下本地文件转成 file:// URL
func (f FeedConfig) Target() string {
	switch f.Fetch {
	case FetchFile:
		return f.Input
	case FetchBrowser:
		if f.SourceURL == "" && f.Input != "" {
			return "file://" + filepath.ToSlash(f.Input)
		}
	}
	return f.SourceURL
}

// Load 读取 YAML 配置，填充默认值并校验
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	logger.Infof("config loaded: feeds=%d output=%s", len(cfg.Feeds), cfg.OutputDir)
	return cfg, nil
}

// Parse 解析配置内容，baseDir 用于解析相对的 input 路径
func Parse(data []byte, baseDir string) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	cfg.applyDefaults(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults(baseDir string) {
	c.OutputDir = getEnv("FEEDGEN_OUTPUT_DIR", orString(c.OutputDir, "feeds"))
	c.FilenameFormat = orString(c.FilenameFormat, DefaultFilenameFormat)
	c.UserAgent = orString(c.UserAgent, DefaultUserAgent)
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	c.PostgresDSN = getEnv("POSTGRES_DSN", c.PostgresDSN)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)

	for i := range c.Feeds {
		f := &c.Feeds[i]
		f.Name = strings.TrimSpace(f.Name)
		f.Title = orString(f.Title, f.Name)
		f.Description = orString(f.Description, f.Title)
		f.Link = orString(f.Link, f.SourceURL)
		f.Language = orString(f.Language, "en")
		f.BaseURL = orString(f.BaseURL, orString(f.SourceURL, f.Link))
		f.UserAgent = orString(f.UserAgent, c.UserAgent)
		if f.Input != "" && !filepath.IsAbs(f.Input) && baseDir != "" {
			f.Input = filepath.Join(baseDir, f.Input)
		}
		if f.Fetch == "" {
			if f.Input != "" {
				f.Fetch = FetchFile
			} else {
				f.Fetch = FetchHTTP
			}
		}
	}
}

// Validate 检查配置是否足以生成 feed，错误信息带上站点名方便修配置
func (c *Config) Validate() error {
	if len(c.Feeds) == 0 {
		return errors.New("no feeds configured")
	}
	if !strings.Contains(c.FilenameFormat, "{name}") {
		return fmt.Errorf("filename_format %q must contain {name}", c.FilenameFormat)
	}

	seen := make(map[string]struct{}, len(c.Feeds))
	for i, f := range c.Feeds {
		if !feedNamePattern.MatchString(f.Name) {
			return fmt.Errorf("feeds[%d]: invalid name %q", i, f.Name)
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("feeds[%d]: duplicate name %q", i, f.Name)
		}
		seen[f.Name] = struct{}{}

		if err := f.validate(); err != nil {
			return fmt.Errorf("feed %s: %w", f.Name, err)
		}
	}
	return nil
}

func (f FeedConfig) validate() error {
	switch f.Fetch {
	case FetchHTTP:
		if f.SourceURL == "" {
			return errors.New("fetch: http requires source_url")
		}
	case FetchBrowser:
		if f.SourceURL == "" && f.Input == "" {
			return errors.New("fetch: browser requires source_url or input")
		}
	case FetchFile:
		if f.Input == "" {
			return errors.New("fetch: file requires input")
		}
	default:
		return fmt.Errorf("unknown fetch mode %q", f.Fetch)
	}
	if f.Link == "" {
		return errors.New("link or source_url is required")
	}
	if f.DateLocation != "" {
		if _, err := time.LoadLocation(f.DateLocation); err != nil {
			return fmt.Errorf("date_location: %w", err)
		}
	}
	if f.MaxItems < 0 || f.SummaryMaxRunes < 0 || f.MinTitleRunes < 0 {
		return errors.New("max_items, summary_max_runes and min_title_runes must not be negative")
	}
	return f.Selectors.Validate()
}

// Select 按名字挑选 feed，names 为空时返回全部，重复的名字只保留第一次
func (c *Config) Select(names []string) ([]FeedConfig, error) {
	if len(names) == 0 {
		return c.Feeds, nil
	}
	byName := make(map[string]FeedConfig, len(c.Feeds))
	for _, f := range c.Feeds {
		byName[f.Name] = f
	}
	out := make([]FeedConfig, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		f, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown feed %q", n)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, f)
	}
	return out, nil
}

// OutputFilename 按 filename_format 生成输出文件名
func (c *Config) OutputFilename(name string) string {
	return strings.ReplaceAll(c.FilenameFormat, "{name}", name)
}

// SelfURL 返回 feed 发布后的地址，未配置 public_url 时为空
func (c *Config) SelfURL(name string) string {
	if c.PublicURL == "" {
		return ""
	}
	return strings.TrimRight(c.PublicURL, "/") + "/" + c.OutputFilename(name)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func orString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Now 是各组件默认使用的时钟，测试里通过 Now 字段替换
func Now() time.Time {
	return time.Now()
}
