// Package crawl is the library entry point: a bounded breadth-first crawl
// from one seed URL that returns structured page records.
package crawl

import (
	"context"

	"sitecrawler/internal/pkg/fetcher"
	"sitecrawler/internal/pkg/logger"
	"sitecrawler/internal/pkg/scheduler"
	"sitecrawler/internal/pkg/types"
	"sitecrawler/internal/pkg/utils"
)

const (
	DefaultMaxDepth        = 2
	DefaultMaxLinksPerPage = 20

	// Limits of the lightweight single-URL crawl.
	SingleURLMaxDepth        = 1
	SingleURLMaxLinksPerPage = 5
)

type (
	Report             = types.CrawlReport
	Page               = types.CrawledPage
	MediaType          = types.MediaType
	ConfigurationError = types.ConfigurationError
)

const (
	MediaHTML      = types.MediaHTML
	MediaPDF       = types.MediaPDF
	MediaPlainText = types.MediaPlainText
	MediaError     = types.MediaError
)

type options struct {
	fetchConfig fetcher.Config
	fetcherOpts []fetcher.Option
	pageFetcher scheduler.PageFetcher
	logger      logger.Interface
	observer     scheduler.Observer
	concurrency  int
	visitedLimit int
}

type Option func(*options)

// Replaces the fetch settings. The default is fetcher.DefaultConfig().
func WithFetchConfig(cfg fetcher.Config) Option {
	return func(o *options) { o.fetchConfig = cfg }
}

// Passes options through to the fetcher built for the run.
func WithFetcherOptions(opts ...fetcher.Option) Option {
	return func(o *options) { o.fetcherOpts = append(o.fetcherOpts, opts...) }
}

// Uses f instead of building a fetcher. f is not closed by the crawl.
func WithPageFetcher(f scheduler.PageFetcher) Option {
	return func(o *options) { o.pageFetcher = f }
}

func WithLogger(log logger.Interface) Option {
	return func(o *options) { o.logger = log }
}

func WithObserver(observer scheduler.Observer) Option {
	return func(o *options) { o.observer = observer }
}

func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

// See scheduler.WithVisitedLimit.
func WithVisitedLimit(n int) Option {
	return func(o *options) { o.visitedLimit = n }
}

// Crawl runs a breadth-first crawl from seedURL. A seed without a scheme
// is treated as https. See scheduler.Scheduler.Run for the error contract.
func Crawl(ctx context.Context, seedURL string, maxDepth, maxLinksPerPage int, opts ...Option) (*Report, error) {
	o := options{
		fetchConfig:  fetcher.DefaultConfig(),
		logger:       logger.NewNoOp(),
		concurrency:  1,
		visitedLimit: scheduler.DefaultVisitedLimit,
	}
	for _, opt := range opts {
		opt(&o)
	}

	seed := seedURL
	if seedURL != "" {
		full, err := utils.BuildFullUrl(seedURL)
		if err != nil {
			return nil, &types.ConfigurationError{Field: "seedURL", Value: seedURL, Reason: err.Error()}
		}
		seed = full
	}

	pageFetcher := o.pageFetcher
	if pageFetcher == nil {
		fetcherOpts := append([]fetcher.Option{fetcher.WithLogger(o.logger)}, o.fetcherOpts...)
		f := fetcher.New(o.fetchConfig, fetcherOpts...)
		defer f.Close()
		pageFetcher = f
	}

	schedulerOpts := []scheduler.Option{
		scheduler.WithLogger(o.logger),
		scheduler.WithConcurrency(o.concurrency),
		scheduler.WithVisitedLimit(o.visitedLimit),
	}
	if o.observer != nil {
		schedulerOpts = append(schedulerOpts, scheduler.WithObserver(o.observer))
	}
	return scheduler.New(pageFetcher, schedulerOpts...).Run(ctx, seed, maxDepth, maxLinksPerPage)
}

// CrawlDefault crawls with DefaultMaxDepth and DefaultMaxLinksPerPage.
func CrawlDefault(ctx context.Context, seedURL string, opts ...Option) (*Report, error) {
	return Crawl(ctx, seedURL, DefaultMaxDepth, DefaultMaxLinksPerPage, opts...)
}

// CrawlURL is the lightweight variant: the page itself plus its first
// five links.
func CrawlURL(ctx context.Context, pageURL string, opts ...Option) (*Report, error) {
	return Crawl(ctx, pageURL, SingleURLMaxDepth, SingleURLMaxLinksPerPage, opts...)
}
