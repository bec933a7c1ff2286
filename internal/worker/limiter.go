package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per host so that crawling several sources in
// parallel never hammers a single site.
type Limiter struct {
	mu      sync.Mutex
	perHost map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
	after   func(time.Duration) <-chan time.Time
}

// NewLimiter allows requestsPerSecond per host with the given burst. A
// non-positive burst becomes 1; a non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	rps := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		rps = rate.Inf
	}
	return &Limiter{
		perHost: make(map[string]*rate.Limiter),
		rps:     rps,
		burst:   burst,
		after:   time.After,
	}
}

// Wait blocks until rawURL's host may be requested again, then for delay
// more. delay carries a robots.txt crawl-delay.
func (l *Limiter) Wait(ctx context.Context, rawURL string, delay time.Duration) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	if err := l.bucket(host).Wait(ctx); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.after(delay):
		return nil
	}
}

func (l *Limiter) bucket(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.perHost[host]
	if !ok {
		b = rate.NewLimiter(l.rps, l.burst)
		l.perHost[host] = b
	}
	return b
}

func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return parsed.Host, nil
}
