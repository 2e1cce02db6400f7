package scheduler

import (
	"context"
	"time"

	"sitecrawler/internal/pkg/fetcher"
	bloomfilter "sitecrawler/internal/pkg/filter"
	"sitecrawler/internal/pkg/logger"
	"sitecrawler/internal/pkg/pool"
	"sitecrawler/internal/pkg/queue"
	"sitecrawler/internal/pkg/types"
)

const (
	maxVisitedEstimate = 1000000
	minVisitedCapacity = 1024
	visitedFPRate      = 0.01

	// URLs kept exactly before the visited set falls back to its bloom filter.
	DefaultVisitedLimit = 100000
)

// PageFetcher retrieves one URL. Failures are reported inside the result.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) fetcher.Result
}

// Observer is told about every page added to a report.
type Observer interface {
	PageCrawled(page types.CrawledPage, elapsed time.Duration)
}

// Scheduler drives a bounded breadth-first crawl over an explicit frontier.
//
// Levels are processed one at a time. Up to concurrency fetches of the same
// level run in parallel, but pages are recorded in dequeue order, so a
// report's pages are in the same order a sequential crawl would give.
type Scheduler struct {
	fetcher     PageFetcher
	logger      logger.Interface
	observer    Observer
	concurrency  int
	visitedLimit int
	now          func() time.Time
}

type Option func(*Scheduler)

func WithLogger(log logger.Interface) Option {
	return func(s *Scheduler) { s.logger = log }
}

func WithObserver(observer Observer) Option {
	return func(s *Scheduler) { s.observer = observer }
}

// Sets how many fetches of one level may be in flight. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n < 1 {
			n = 1
		}
		s.concurrency = n
	}
}

// Bounds the URLs the visited set stores exactly. Past n, further URLs are
// only remembered by a bloom filter and an unseen URL is skipped as visited
// with a probability of about 1%. Zero or less removes the bound.
func WithVisitedLimit(n int) Option {
	return func(s *Scheduler) { s.visitedLimit = n }
}

func New(f PageFetcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher:      f,
		logger:       logger.NewNoOp(),
		concurrency:  1,
		visitedLimit: DefaultVisitedLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run crawls from seedURL, following at most maxLinksPerPage links of each
// HTML page down to maxDepth. Per-page failures become error records; the
// returned error is a *types.ConfigurationError for bad arguments, or the
// context's error when the run was cancelled, in which case the pages
// recorded so far are still returned. A fetch that could not start before
// ctx's deadline ends the run the same way, with an error wrapping
// fetcher.ErrNotStarted; such URLs are not recorded.
func (s *Scheduler) Run(ctx context.Context, seedURL string, maxDepth, maxLinksPerPage int) (*types.CrawlReport, error) {
	if err := validate(seedURL, maxDepth, maxLinksPerPage); err != nil {
		return nil, err
	}

	report := &types.CrawlReport{
		SeedURL:         seedURL,
		MaxDepth:        maxDepth,
		MaxLinksPerPage: maxLinksPerPage,
		StartedAt:       s.now(),
		Pages:           []types.CrawledPage{},
	}
	log := s.logger.With("seed", seedURL)
	log.Info("Crawl started", "max_depth", maxDepth, "max_links_per_page", maxLinksPerPage, "concurrency", s.concurrency)

	frontier := queue.New(1)
	frontier.Insert(queue.Entry{URL: seedURL, Depth: 0})
	capacity := max(estimateVisited(maxDepth, maxLinksPerPage), minVisitedCapacity)
	visited := bloomfilter.NewVisitedSet(capacity, visitedFPRate, s.visitedLimit)
	defer func() {
		if visited.Saturated() {
			log.Warn("Visited set exceeded its exact limit; some unseen URLs may have been skipped",
				"visited", visited.Len(), "exact_limit", s.visitedLimit)
		}
	}()

	for !frontier.IsEmpty() {
		if err := ctx.Err(); err != nil {
			return s.finish(log, report, err)
		}

		batch := s.nextLevel(log, frontier, visited, maxDepth)
		if len(batch) == 0 {
			continue
		}

		results, err := pool.Map(ctx, s.concurrency, batch, func(ctx context.Context, entry queue.Entry) (fetcher.Result, error) {
			return s.fetcher.Fetch(ctx, entry.URL), nil
		})

		var aborted error
		for i, result := range results {
			if result.RequestedURL == "" && result.URL == "" {
				// Never launched because the run was cancelled.
				continue
			}
			if !result.Started() {
				log.Debug("Skipped", "url", batch[i].URL, "depth", batch[i].Depth, "reason", "not started")
				if aborted == nil {
					aborted = result.Aborted
				}
				continue
			}
			s.record(log, report, frontier, visited, batch[i], result, maxDepth, maxLinksPerPage)
		}

		if err == nil {
			err = ctx.Err()
		}
		if err == nil {
			err = aborted
		}
		if err != nil {
			return s.finish(log, report, err)
		}
	}

	return s.finish(log, report, nil)
}

// Dequeues every entry currently in the frontier, which all share one depth,
// and keeps those that are within the depth bound and not yet visited.
func (s *Scheduler) nextLevel(log logger.Interface, frontier *queue.Queue, visited *bloomfilter.VisitedSet, maxDepth int) []queue.Entry {
	if head, err := frontier.Peek(); err == nil {
		log.Debug("Level started", "depth", head.Depth, "queued", frontier.Len())
	}
	batch := make([]queue.Entry, 0, frontier.Len())
	for {
		entry, err := frontier.Remove()
		if err != nil {
			return batch
		}
		log.Debug("Dequeued", "url", entry.URL, "depth", entry.Depth)

		if entry.Depth > maxDepth {
			log.Debug("Skipped", "url", entry.URL, "depth", entry.Depth, "reason", "depth")
			continue
		}
		if visited.CheckAndMark(entry.URL) {
			log.Debug("Skipped", "url", entry.URL, "depth", entry.Depth, "reason", "visited")
			continue
		}
		batch = append(batch, entry)
	}
}

// Appends the page for result and enqueues its children.
func (s *Scheduler) record(
	log logger.Interface,
	report *types.CrawlReport,
	frontier *queue.Queue,
	visited *bloomfilter.VisitedSet,
	entry queue.Entry,
	result fetcher.Result,
	maxDepth, maxLinksPerPage int,
) {
	page := result.Page(entry.Depth)
	if page.URL != entry.URL && visited.CheckAndMark(page.URL) {
		log.Debug("Skipped", "url", entry.URL, "final_url", page.URL, "depth", entry.Depth, "reason", "redirect target visited")
		return
	}

	report.Pages = append(report.Pages, page)
	if s.observer != nil {
		s.observer.PageCrawled(page, result.LoadTime)
	}

	enqueued := 0
	if entry.Depth < maxDepth && page.MediaType == types.MediaHTML {
		links := result.Links
		if len(links) > maxLinksPerPage {
			links = links[:maxLinksPerPage]
		}
		for _, link := range links {
			frontier.Insert(queue.Entry{URL: link, Depth: entry.Depth + 1})
		}
		enqueued = len(links)
	}

	if page.IsError() {
		log.Warn("Recorded error page", "url", page.URL, "depth", page.Depth, "error", page.Error)
		return
	}
	log.Info("Recorded page",
		"url", page.URL,
		"depth", page.Depth,
		"media_type", page.MediaType,
		"links", page.LinkCount,
		"enqueued", enqueued,
	)
}

func (s *Scheduler) finish(log logger.Interface, report *types.CrawlReport, err error) (*types.CrawlReport, error) {
	report.FinishedAt = s.now()
	if err != nil {
		log.Warn("Crawl interrupted", "pages", len(report.Pages), "error", err)
		return report, err
	}
	log.Info("Crawl finished",
		"pages", len(report.Pages),
		"deepest", report.MaxPageDepth(),
		"elapsed", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

func validate(seedURL string, maxDepth, maxLinksPerPage int) error {
	if seedURL == "" {
		return &types.ConfigurationError{Field: "seedURL", Value: `""`, Reason: "must not be empty"}
	}
	if maxDepth < 0 {
		return &types.ConfigurationError{Field: "maxDepth", Value: maxDepth, Reason: "must not be negative"}
	}
	if maxLinksPerPage < 0 {
		return &types.ConfigurationError{Field: "maxLinksPerPage", Value: maxLinksPerPage, Reason: "must not be negative"}
	}
	return nil
}

// Upper bound on distinct URLs a run can visit, clamped for sizing the
// visited set.
func estimateVisited(maxDepth, maxLinksPerPage int) int {
	total, level := 1, 1
	for d := 0; d < maxDepth; d++ {
		level *= maxLinksPerPage
		total += level
		if level == 0 || total >= maxVisitedEstimate {
			break
		}
	}
	return min(total, maxVisitedEstimate)
}
