package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	robotsRefreshInterval = 24 * time.Hour
	maxRobotsBodyBytes    = 512 * 1024
)

type robotsEntry struct {
	group     *robotstxt.Group // nil means allow all
	fetchedAt time.Time
}

// RobotsChecker fetches robots.txt once per host and answers whether a URL
// may be crawled. A missing or unreadable robots.txt allows everything.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]*robotsEntry
}

func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		now:       time.Now,
		cache:     make(map[string]*robotsEntry),
	}
}

// Checks rawURL against its host's robots.txt, fetching it when missing or stale.
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("robots: parse url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	if host == "" {
		return false, fmt.Errorf("robots: empty host in url %q", rawURL)
	}

	entry := r.entry(ctx, parsed.Scheme, host)
	if entry.group == nil {
		return true, nil
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	return entry.group.Test(path), nil
}

// Returns the Crawl-delay robots.txt asks of this crawler, capped at
// five seconds. Zero when unknown.
func (r *RobotsChecker) CrawlDelay(host string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.cache[strings.ToLower(host)]
	if !ok || entry.group == nil || entry.group.CrawlDelay <= 0 {
		return 0
	}
	return min(entry.group.CrawlDelay, maxCrawlDelay)
}

func (r *RobotsChecker) entry(ctx context.Context, scheme, host string) *robotsEntry {
	r.mu.Lock()
	cached, ok := r.cache[host]
	r.mu.Unlock()
	if ok && r.now().Sub(cached.fetchedAt) < robotsRefreshInterval {
		return cached
	}

	fresh := &robotsEntry{group: r.fetchGroup(ctx, scheme, host), fetchedAt: r.now()}
	r.mu.Lock()
	r.cache[host] = fresh
	r.mu.Unlock()
	return fresh
}

// Fetches and parses robots.txt for host. Any failure yields nil (allow all).
func (r *RobotsChecker) fetchGroup(ctx context.Context, scheme, host string) *robotstxt.Group {
	robotsURL := (&url.URL{Scheme: scheme, Host: host, Path: "/robots.txt"}).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return nil
	}
	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}
	return robots.FindGroup(r.userAgent)
}
