package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"sitecrawler/internal/pkg/extractor"
	"sitecrawler/internal/pkg/logger"
	"sitecrawler/internal/pkg/types"
	"sitecrawler/internal/pkg/utils"
)

// Rendered output is only tried when plain HTTP yields less text than this.
const minRenderedTextLength = 50

// Result of one retrieval. URL is the address after redirects.
//
// Aborted is set, wrapping ErrNotStarted, when the request was never sent
// because ctx ended or its deadline would pass while waiting for the host's
// pacing slot. Such a result carries no page.
type Result struct {
	extractor.Extraction
	RequestedURL string
	URL          string
	StatusCode   int
	LoadTime     time.Duration
	Aborted      error
}

// Started reports whether a request was actually attempted.
func (r Result) Started() bool {
	return r.Aborted == nil
}

// Page converts the result into the record stored in a crawl report.
// Content is truncated to types.MaxContentLength characters.
func (r Result) Page(depth int) types.CrawledPage {
	links := r.Links
	if links == nil {
		links = []string{}
	}
	page := types.CrawledPage{
		URL:       r.URL,
		Title:     r.Title,
		Content:   types.TruncateContent(r.Content, types.MaxContentLength),
		MediaType: r.MediaType,
		Metadata:  r.Metadata,
		Depth:     depth,
		LinkCount: len(links),
		LoadTime:  r.LoadTime,
	}
	if page.URL == "" {
		page.URL = r.RequestedURL
	}
	if r.Err != nil {
		page.Error = r.Err.Error()
		page.LinkCount = 0
	}
	return page
}

// Fetcher performs single-attempt GETs and hands bodies to the extractor.
// Safe for concurrent use.
type Fetcher struct {
	cfg      Config
	client   *http.Client
	robots   *RobotsChecker
	limiter  *RateLimiter
	renderer HTMLRenderer
	logger   logger.Interface
}

type Option func(*Fetcher)

// Replaces the HTTP client. Its Timeout is kept as set by the caller.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

func WithLogger(log logger.Interface) Option {
	return func(f *Fetcher) { f.logger = log }
}

// Sets the renderer used when RenderJavaScript is on.
func WithRenderer(renderer HTMLRenderer) Option {
	return func(f *Fetcher) { f.renderer = renderer }
}

func New(cfg Config, opts ...Option) *Fetcher {
	cfg = cfg.WithDefaults()
	f := &Fetcher{
		cfg:     cfg,
		limiter: NewRateLimiter(cfg.Delay),
		logger:  logger.NewNoOp(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = newHTTPClient(cfg)
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsChecker(f.client, cfg.UserAgent)
	}
	if cfg.RenderJavaScript && f.renderer == nil {
		f.renderer = NewChromeRenderer(cfg.UserAgent, cfg.Timeout)
	}
	return f
}

func newHTTPClient(cfg Config) *http.Client {
	maxRedirects := cfg.MaxRedirects
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: cfg.Timeout,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// Fetch retrieves rawURL once and extracts it. It never returns an error:
// every failure is folded into an error record.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Result {
	start := time.Now()
	result := f.fetch(ctx, rawURL)
	result.RequestedURL = rawURL
	result.LoadTime = time.Since(start)
	switch {
	case result.Aborted != nil:
		f.logger.Debug("Fetch not started", "url", rawURL, "error", result.Aborted)
	case result.Err != nil:
		f.logger.Warn("Fetch failed", "url", rawURL, "error", result.Err)
	}
	return result
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) Result {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || !utils.IsValidScheme(parsedURL.Scheme) || parsedURL.Host == "" {
		return failed(rawURL, &FetchError{URL: rawURL, Message: "unsupported URL", Cause: err})
	}

	if f.robots != nil {
		allowed, err := f.robots.IsAllowed(ctx, rawURL)
		if err != nil {
			return failed(rawURL, &FetchError{URL: rawURL, Message: "checking robots.txt", Cause: err})
		}
		if !allowed {
			return failed(rawURL, &FetchError{URL: rawURL, Message: "fetch refused", Cause: ErrCrawlingDisallowed})
		}
		f.limiter.SetHostDelay(parsedURL.Host, f.robots.CrawlDelay(parsedURL.Host))
	}

	if err := f.limiter.Wait(ctx, parsedURL.Host); err != nil {
		return Result{Aborted: fmt.Errorf("%w: waiting for rate limiter: %w", ErrNotStarted, err)}
	}

	body, contentType, finalURL, status, err := f.get(ctx, rawURL)
	if err != nil {
		return Result{Extraction: extractor.ErrorRecord(rawURL, err), URL: rawURL, StatusCode: status}
	}

	extraction := extractor.Extract(body, contentType, finalURL)
	if f.shouldRender(extraction) {
		extraction = f.render(ctx, finalURL, extraction)
	}
	return Result{Extraction: extraction, URL: finalURL, StatusCode: status}
}

// Issues the GET. The body is capped at MaxBodyBytes and always closed.
func (f *Fetcher) get(ctx context.Context, rawURL string) (body []byte, contentType, finalURL string, status int, err error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", "", 0, &FetchError{URL: rawURL, Message: "creating request", Cause: err}
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		message := "request failed"
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			message = "request timed out"
		}
		return nil, "", "", 0, &FetchError{URL: rawURL, Message: message, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, "", "", resp.StatusCode, &FetchError{
			URL:     rawURL,
			Message: fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, "", "", resp.StatusCode, &FetchError{URL: rawURL, Message: "reading body", Cause: err}
	}
	if int64(len(body)) > f.cfg.MaxBodyBytes {
		f.logger.Warn("Response body truncated", "url", rawURL, "limit_bytes", f.cfg.MaxBodyBytes)
		body = body[:f.cfg.MaxBodyBytes]
	}

	finalURL = rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return body, resp.Header.Get("Content-Type"), finalURL, resp.StatusCode, nil
}

func (f *Fetcher) shouldRender(extraction extractor.Extraction) bool {
	if !f.cfg.RenderJavaScript || f.renderer == nil || extraction.MediaType != types.MediaHTML {
		return false
	}
	return extraction.Title == "" || len(extraction.Content) < minRenderedTextLength
}

// Re-extracts from the rendered DOM, keeping the plain result if rendering fails.
// The browser navigation is paced like any other request to the host.
func (f *Fetcher) render(ctx context.Context, pageURL string, plain extractor.Extraction) extractor.Extraction {
	if parsed, err := url.Parse(pageURL); err == nil {
		if err := f.limiter.Wait(ctx, parsed.Host); err != nil {
			f.logger.Debug("Render fallback skipped", "url", pageURL, "error", err)
			return plain
		}
	}
	rendered, err := f.renderer.Render(ctx, pageURL)
	if err != nil {
		f.logger.Warn("Render fallback failed", "url", pageURL, "error", err)
		return plain
	}
	extraction := extractor.Extract([]byte(rendered), "text/html; charset=utf-8", pageURL)
	if extraction.MediaType != types.MediaHTML {
		return plain
	}
	return extraction
}

// Releases the renderer and idle connections.
func (f *Fetcher) Close() {
	if f.renderer != nil {
		f.renderer.Close()
	}
	f.client.CloseIdleConnections()
}

func failed(rawURL string, err error) Result {
	return Result{Extraction: extractor.ErrorRecord(rawURL, err), URL: rawURL}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
