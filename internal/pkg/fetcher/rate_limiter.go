package fetcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces requests to the same host by at least a fixed delay.
// Hosts are paced independently.
type RateLimiter struct {
	delay time.Duration

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

func NewRateLimiter(delay time.Duration) *RateLimiter {
	return &RateLimiter{
		delay: delay,
		hosts: make(map[string]*rate.Limiter),
	}
}

// Blocks until a request to host is permitted or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, host string) error {
	return r.limiter(host).Wait(ctx)
}

// Raises the spacing for host to d, e.g. from a robots.txt Crawl-delay.
// A delay shorter than the current one is ignored.
func (r *RateLimiter) SetHostDelay(host string, d time.Duration) {
	if d <= 0 {
		return
	}
	d = min(d, maxCrawlDelay)
	limiter := r.limiter(host)
	if current := limiter.Limit(); current == rate.Inf || rate.Every(d) < current {
		limiter.SetLimit(rate.Every(d))
	}
}

func (r *RateLimiter) limiter(host string) *rate.Limiter {
	host = strings.ToLower(host)

	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, ok := r.hosts[host]
	if !ok {
		limit := rate.Inf
		if r.delay > 0 {
			limit = rate.Every(r.delay)
		}
		limiter = rate.NewLimiter(limit, 1)
		r.hosts[host] = limiter
	}
	return limiter
}
