package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/brevis/internal/logger"
	"github.com/ppiankov/brevis/internal/model"
	"github.com/ppiankov/brevis/internal/worker"
)

// Crawler collects news articles from source index pages.
type Crawler struct {
	fetcher   *Fetcher
	extractor *Extractor
	robots    worker.RobotsPolicy
	limiter   *worker.Limiter
	workers   int
	limit     int
	log       logger.Logger
}

// NewCrawler creates a Crawler. robots may be nil to ignore robots.txt.
func NewCrawler(fetcher *Fetcher, robots worker.RobotsPolicy, cfg model.CrawlConfig, log logger.Logger) *Crawler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Crawler{
		fetcher:   fetcher,
		extractor: NewExtractor(),
		robots:    robots,
		limiter:   worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		workers:   cfg.Workers,
		limit:     cfg.ArticleLimit,
		log:       log,
	}
}

// FetchArticle downloads url and extracts its title and content.
func (c *Crawler) FetchArticle(ctx context.Context, url string) (*model.Article, error) {
	res, err := c.fetcher.FetchWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}
	if res.Truncated {
		c.log.Warn("Page body truncated at size limit", logger.String("url", url))
	}
	return c.extractor.Article(url, res.HTML)
}

// Links returns the article links found on a source index page.
func (c *Crawler) Links(ctx context.Context, indexURL string) ([]string, error) {
	var delay time.Duration
	if c.robots != nil {
		allowed, crawlDelay, err := c.robots.CanFetch(ctx, indexURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, worker.ErrDisallowed
		}
		delay = crawlDelay
	}
	if err := c.limiter.Wait(ctx, indexURL, delay); err != nil {
		return nil, err
	}

	res, err := c.fetcher.FetchWithRetry(ctx, indexURL)
	if err != nil {
		return nil, err
	}
	base := res.FinalURL
	if base == "" {
		base = indexURL
	}
	return ExtractLinks(base, strings.NewReader(res.HTML))
}

// CrawlSource fetches up to the article limit of links from one source. Pages
// that fail are logged and skipped; an unreachable index page yields a source
// with no articles.
func (c *Crawler) CrawlSource(ctx context.Context, src model.SourceConfig) model.Source {
	log := c.log.With(logger.String("source", src.Name))
	out := model.Source{Name: src.Name, Articles: []model.Article{}}

	links, err := c.Links(ctx, src.URL)
	if err != nil {
		log.Warn("Failed to retrieve index page", logger.String("url", src.URL), logger.Error(err))
		return out
	}
	if len(links) > c.limit {
		links = links[:c.limit]
	}
	log.Info("Fetching articles", logger.Int("links", len(links)))

	out.Articles = c.collect(ctx, log, links)
	log.Info("Source complete", logger.Int("articles", len(out.Articles)))
	return out
}

// CrawlURLs fetches an explicit list of article URLs into a source named name.
func (c *Crawler) CrawlURLs(ctx context.Context, name string, urls []string) model.Source {
	log := c.log.With(logger.String("source", name))
	return model.Source{Name: name, Articles: c.collect(ctx, log, urls)}
}

func (c *Crawler) collect(ctx context.Context, log logger.Logger, urls []string) []model.Article {
	collector := worker.NewCollector(c, c.limiter, c.robots, c.workers)
	articles := make([]model.Article, 0, len(urls))
	for _, r := range collector.Collect(ctx, urls) {
		if r.Error != nil {
			var statusErr *StatusError
			if stderrors.As(r.Error, &statusErr) {
				log.Warn("Failed to retrieve article", logger.String("url", r.URL), logger.Int("status", statusErr.StatusCode))
			} else {
				log.Warn("Failed to retrieve article", logger.String("url", r.URL), logger.Error(r.Error))
			}
			continue
		}
		articles = append(articles, *r.Article)
	}
	return articles
}

// Crawl visits every source in order and returns the corpus. Sources are
// crawled one after another; articles within a source are fetched in
// parallel.
func (c *Crawler) Crawl(ctx context.Context, sources []model.SourceConfig) (*model.Corpus, error) {
	corpus := &model.Corpus{Sources: make([]model.Source, 0, len(sources))}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return corpus, fmt.Errorf("crawl interrupted before %s: %w", src.Name, err)
		}
		corpus.Sources = append(corpus.Sources, c.CrawlSource(ctx, src))
	}
	return corpus, nil
}
