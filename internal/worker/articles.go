package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/brevis/internal/model"
)

// ErrDisallowed is returned for URLs excluded by robots.txt.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// ArticleFetcher downloads and extracts one article.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, url string) (*model.Article, error)
}

// RobotsPolicy decides whether a URL may be crawled and how long to wait
// before requesting it.
type RobotsPolicy interface {
	CanFetch(ctx context.Context, url string) (bool, time.Duration, error)
}

// ArticleJob fetches a single article after clearing robots.txt and the host
// rate limit.
type ArticleJob struct {
	Index   int
	URL     string
	Fetcher ArticleFetcher
	Limiter *Limiter
	Robots  RobotsPolicy
}

// Execute runs the job.
func (j *ArticleJob) Execute(ctx context.Context) Result {
	res := &ArticleResult{Index: j.Index, URL: j.URL}

	var delay time.Duration
	if j.Robots != nil {
		allowed, crawlDelay, err := j.Robots.CanFetch(ctx, j.URL)
		if err != nil {
			res.Error = err
			return res
		}
		if !allowed {
			res.Error = ErrDisallowed
			return res
		}
		delay = crawlDelay
	}
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.URL, delay); err != nil {
			res.Error = err
			return res
		}
	}

	res.Article, res.Error = j.Fetcher.FetchArticle(ctx, j.URL)
	return res
}

// ArticleResult is the outcome of an ArticleJob.
type ArticleResult struct {
	Index   int
	URL     string
	Article *model.Article
	Error   error
}

// GetError returns the job error.
func (r *ArticleResult) GetError() error {
	return r.Error
}

// Collector downloads lists of article URLs concurrently.
type Collector struct {
	fetcher     ArticleFetcher
	limiter     *Limiter
	robots      RobotsPolicy
	concurrency int
}

// NewCollector creates a Collector. limiter and robots may be nil.
func NewCollector(fetcher ArticleFetcher, limiter *Limiter, robots RobotsPolicy, concurrency int) *Collector {
	return &Collector{
		fetcher:     fetcher,
		limiter:     limiter,
		robots:      robots,
		concurrency: concurrency,
	}
}

// Collect fetches every URL and returns one result per URL in input order.
func (c *Collector) Collect(ctx context.Context, urls []string) []*ArticleResult {
	if len(urls) == 0 {
		return []*ArticleResult{}
	}

	pool := NewPool(ctx, c.concurrency)
	pool.Start()
	defer pool.Shutdown()

	go func() {
		for i, u := range urls {
			pool.Submit(&ArticleJob{
				Index:   i,
				URL:     u,
				Fetcher: c.fetcher,
				Limiter: c.limiter,
				Robots:  c.robots,
			})
		}
		pool.Close()
	}()

	out := make([]*ArticleResult, len(urls))
	for r := range pool.Results() {
		res := r.(*ArticleResult)
		out[res.Index] = res
	}

	for i, res := range out {
		if res == nil {
			err := ctx.Err()
			if err == nil {
				err = errors.New("job not executed")
			}
			out[i] = &ArticleResult{Index: i, URL: urls[i], Error: err}
		}
	}
	return out
}

// ReadURLsFromFile reads one URL per line, skipping blanks, '#' comments and
// duplicates.
func ReadURLsFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer func() { _ = f.Close() }()

	var urls []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan url list: %w", err)
	}
	return urls, nil
}
