package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"sitecrawler/internal/pkg/fetcher"
	"sitecrawler/internal/pkg/logger"
	"sitecrawler/internal/pkg/output"
	"sitecrawler/internal/pkg/scheduler"
	"sitecrawler/internal/pkg/types"
)

const EnvPrefix = "SITECRAWLER"

type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Log     LogConfig     `mapstructure:"log"`
	Output  OutputConfig  `mapstructure:"output"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Batch   BatchConfig   `mapstructure:"batch"`
}

// VisitedLimit of zero or less keeps every visited URL exactly.
type CrawlConfig struct {
	MaxDepth        int `mapstructure:"max_depth"`
	MaxLinksPerPage int `mapstructure:"max_links_per_page"`
	Concurrency     int `mapstructure:"concurrency"`
	VisitedLimit    int `mapstructure:"visited_limit"`
}

type FetchConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	UserAgent        string        `mapstructure:"user_agent"`
	Delay            time.Duration `mapstructure:"delay"`
	MaxBodyBytes     int64         `mapstructure:"max_body_bytes"`
	RespectRobots    bool          `mapstructure:"respect_robots"`
	RenderJavaScript bool          `mapstructure:"render_javascript"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
	Dir    string `mapstructure:"dir"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

type BatchConfig struct {
	SeedsFile    string `mapstructure:"seeds_file"`
	ProgressFile string `mapstructure:"progress_file"`
	Workers      int    `mapstructure:"workers"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("crawl.max_depth", 2)
	v.SetDefault("crawl.max_links_per_page", 20)
	v.SetDefault("crawl.concurrency", 1)
	v.SetDefault("crawl.visited_limit", scheduler.DefaultVisitedLimit)

	v.SetDefault("fetch.timeout", fetcher.DefaultTimeout)
	v.SetDefault("fetch.user_agent", fetcher.DefaultUserAgent)
	v.SetDefault("fetch.delay", fetcher.DefaultDelay)
	v.SetDefault("fetch.max_body_bytes", fetcher.DefaultMaxBodyBytes)
	v.SetDefault("fetch.respect_robots", true)
	v.SetDefault("fetch.render_javascript", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")

	v.SetDefault("output.format", string(output.FormatJSON))
	v.SetDefault("output.dir", "output")

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("batch.seeds_file", "seeds.txt")
	v.SetDefault("batch.progress_file", "progress.txt")
	v.SetDefault("batch.workers", 2)
}

// Load reads configuration from defaults, an optional YAML file, a .env file,
// SITECRAWLER_* environment variables and any flags already bound to v, in
// increasing order of precedence.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings a crawl cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.Crawl.MaxDepth < 0:
		return &types.ConfigurationError{Field: "crawl.max_depth", Value: c.Crawl.MaxDepth, Reason: "must not be negative"}
	case c.Crawl.MaxLinksPerPage < 0:
		return &types.ConfigurationError{Field: "crawl.max_links_per_page", Value: c.Crawl.MaxLinksPerPage, Reason: "must not be negative"}
	case c.Crawl.Concurrency < 1:
		return &types.ConfigurationError{Field: "crawl.concurrency", Value: c.Crawl.Concurrency, Reason: "must be at least 1"}
	case c.Fetch.Timeout <= 0:
		return &types.ConfigurationError{Field: "fetch.timeout", Value: c.Fetch.Timeout, Reason: "must be positive"}
	case c.Fetch.Delay < 0:
		return &types.ConfigurationError{Field: "fetch.delay", Value: c.Fetch.Delay, Reason: "must not be negative"}
	case c.Fetch.MaxBodyBytes <= 0:
		return &types.ConfigurationError{Field: "fetch.max_body_bytes", Value: c.Fetch.MaxBodyBytes, Reason: "must be positive"}
	case c.Batch.Workers < 1:
		return &types.ConfigurationError{Field: "batch.workers", Value: c.Batch.Workers, Reason: "must be at least 1"}
	}
	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return &types.ConfigurationError{Field: "output.format", Value: c.Output.Format, Reason: "must be json or yaml"}
	}
	return nil
}

func (c *Config) FetcherConfig() fetcher.Config {
	return fetcher.Config{
		Timeout:          c.Fetch.Timeout,
		UserAgent:        c.Fetch.UserAgent,
		Delay:            c.Fetch.Delay,
		MaxBodyBytes:     c.Fetch.MaxBodyBytes,
		RespectRobots:    c.Fetch.RespectRobots,
		RenderJavaScript: c.Fetch.RenderJavaScript,
	}
}

func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Log.Level, Encoding: c.Log.Encoding}
}

func (c *Config) OutputFormat() output.Format {
	format, _ := output.ParseFormat(c.Output.Format)
	return format
}
