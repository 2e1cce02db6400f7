package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// HTMLRenderer returns the DOM of a page after its scripts have run.
type HTMLRenderer interface {
	Render(ctx context.Context, url string) (string, error)
	Close()
}

// ChromeRenderer renders pages in one shared headless Chrome instance,
// started on first use.
type ChromeRenderer struct {
	userAgent string
	timeout   time.Duration

	once          sync.Once
	startErr      error
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

func NewChromeRenderer(userAgent string, timeout time.Duration) *ChromeRenderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ChromeRenderer{userAgent: userAgent, timeout: timeout}
}

// Navigates to url, waits for the body and returns the outer HTML.
func (c *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	c.once.Do(c.start)
	if c.startErr != nil {
		return "", c.startErr
	}

	taskCtx, taskCancel := chromedp.NewContext(c.browserCtx)
	defer taskCancel()
	taskCtx, timeoutCancel := context.WithTimeout(taskCtx, c.timeout)
	defer timeoutCancel()

	// Tie the tab to the caller's context as well.
	stop := context.AfterFunc(ctx, taskCancel)
	defer stop()

	var content string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &content, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", url, err)
	}
	return content, nil
}

// Shuts the browser down.
func (c *ChromeRenderer) Close() {
	if c.browserCancel != nil {
		c.browserCancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
}

func (c *ChromeRenderer) start() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.UserAgent(c.userAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	c.allocCancel = allocCancel
	c.browserCtx, c.browserCancel = chromedp.NewContext(allocCtx)

	if err := chromedp.Run(c.browserCtx); err != nil {
		c.startErr = fmt.Errorf("starting chrome: %w", err)
	}
}
