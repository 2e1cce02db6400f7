package fetcher

import "time"

const (
	DefaultTimeout      = 30 * time.Second
	DefaultDelay        = 1 * time.Second
	DefaultMaxBodyBytes = 10 * 1024 * 1024
	DefaultMaxRedirects = 10
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// Upper bound on any Crawl-delay honoured from robots.txt.
	maxCrawlDelay = 5 * time.Second
)

// Config holds the knobs of a Fetcher. Zero values for Timeout, UserAgent,
// MaxBodyBytes and MaxRedirects are replaced by defaults; a zero Delay means
// requests are not paced.
type Config struct {
	Timeout          time.Duration
	UserAgent        string
	Delay            time.Duration
	MaxBodyBytes     int64
	MaxRedirects     int
	RespectRobots    bool
	RenderJavaScript bool
}

// DefaultConfig returns the settings used when a caller supplies none.
func DefaultConfig() Config {
	return Config{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		Delay:        DefaultDelay,
		MaxBodyBytes: DefaultMaxBodyBytes,
		MaxRedirects: DefaultMaxRedirects,
	}
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	return c
}
