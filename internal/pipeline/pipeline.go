// Package pipeline wires the corpus, vocabulary, dataset, training and
// checkpoint stages together and owns the network side of corpus collection.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/brevis/internal/cache"
	"github.com/ppiankov/brevis/internal/checkpoint"
	"github.com/ppiankov/brevis/internal/corpus"
	"github.com/ppiankov/brevis/internal/dataset"
	"github.com/ppiankov/brevis/internal/logger"
	"github.com/ppiankov/brevis/internal/model"
	"github.com/ppiankov/brevis/internal/text"
	"github.com/ppiankov/brevis/internal/train"
	"github.com/ppiankov/brevis/internal/util"
	"github.com/ppiankov/brevis/internal/vocab"
	"github.com/ppiankov/brevis/internal/worker"
)

// Pipeline runs the offline stages: crawl, preprocess, vocab and train.
type Pipeline struct {
	config     *model.Config
	log        logger.Logger
	segmenter  text.Segmenter
	normalizer *text.Normalizer
	fetcher    *Fetcher
}

// New creates a Pipeline from cfg.
func New(cfg *model.Config, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}

	var opts []text.NormalizerOption
	if cfg.Normalize.RemoveStopwords {
		opts = append(opts, text.WithStopwords())
	}

	return &Pipeline{
		config:     cfg,
		log:        log,
		segmenter:  text.NewSegmenter(),
		normalizer: text.NewNormalizer(opts...),
		fetcher:    NewFetcherFromConfig(cfg),
	}
}

// NewFetcherFromConfig builds the page fetcher described by cfg.HTTP, backed
// by the page cache when cfg.Cache is enabled.
func NewFetcherFromConfig(cfg *model.Config) *Fetcher {
	f := NewFetcher(
		cfg.HTTP.Timeout,
		cfg.HTTP.UserAgent,
		cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.InsecureTLS,
		cfg.HTTP.HTTPProxy,
		cfg.HTTP.HTTPSProxy,
		cfg.HTTP.NoProxy,
	)
	if cfg.Cache.Enabled {
		f.WithCache(cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL))
	}
	return f
}

// Crawler returns a crawler configured from the pipeline settings.
func (p *Pipeline) Crawler() *Crawler {
	var robots worker.RobotsPolicy
	if p.config.Crawl.RespectRobots {
		robots = util.NewRobotsChecker(p.config.HTTP.UserAgent, p.config.HTTP.Timeout)
	}
	return NewCrawler(p.fetcher, robots, p.config.Crawl, p.log)
}

// Crawl collects articles from the configured sources, plus an optional
// source built from extra URLs, and writes the corpus file.
func (p *Pipeline) Crawl(ctx context.Context, extra *model.Source) (*model.Corpus, error) {
	start := time.Now()
	c, err := p.Crawler().Crawl(ctx, p.config.Crawl.Sources)
	if err != nil {
		return nil, err
	}
	if extra != nil {
		c.Sources = append(c.Sources, *extra)
	}

	if err := corpus.Save(p.config.Paths.Corpus, c); err != nil {
		p.log.Error("Cannot write corpus", logger.String("path", p.config.Paths.Corpus), logger.Error(err))
		return nil, err
	}
	p.log.Info("Corpus written",
		logger.String("path", p.config.Paths.Corpus),
		logger.Int("sources", len(c.Sources)),
		logger.Int("articles", c.NumArticles()),
		logger.Duration("duration", time.Since(start)),
	)
	return c, nil
}

// Preprocess normalizes every article of the corpus file into one line of the
// line corpus.
func (p *Pipeline) Preprocess() ([]string, error) {
	c, err := corpus.Load(p.config.Paths.Corpus)
	if err != nil {
		p.log.Error("Cannot read corpus", logger.String("path", p.config.Paths.Corpus), logger.Error(err))
		return nil, err
	}

	articles := c.Articles()
	lines := make([]string, len(articles))
	for i, a := range articles {
		lines[i] = p.normalizer.Article(a)
	}

	if err := corpus.WriteLines(p.config.Paths.Lines, lines); err != nil {
		p.log.Error("Cannot write line corpus", logger.String("path", p.config.Paths.Lines), logger.Error(err))
		return nil, err
	}
	p.log.Info("Preprocessed data saved",
		logger.String("path", p.config.Paths.Lines),
		logger.Int("lines", len(lines)),
	)
	return lines, nil
}

// BuildVocabulary counts the tokens of the line corpus and writes the
// vocabulary file.
func (p *Pipeline) BuildVocabulary() (*vocab.Vocabulary, error) {
	lines, err := corpus.ReadLines(p.config.Paths.Lines)
	if err != nil {
		p.log.Error("Cannot read line corpus", logger.String("path", p.config.Paths.Lines), logger.Error(err))
		return nil, err
	}

	v, err := vocab.NewBuilder(p.segmenter).Build(lines)
	if err != nil {
		p.log.Error("Cannot build vocabulary", logger.Error(err))
		return nil, err
	}

	if err := vocab.Save(p.config.Paths.Vocabulary, v); err != nil {
		p.log.Error("Cannot write vocabulary", logger.String("path", p.config.Paths.Vocabulary), logger.Error(err))
		return nil, err
	}
	p.log.Info("Vocabulary saved",
		logger.String("path", p.config.Paths.Vocabulary),
		logger.Int("tokens", v.Len()),
	)
	return v, nil
}

// Train fits a model on the line corpus with the stored vocabulary and writes
// the checkpoint.
func (p *Pipeline) Train(ctx context.Context) ([]train.EpochStats, error) {
	v, err := vocab.Load(p.config.Paths.Vocabulary)
	if err != nil {
		p.log.Error("Cannot read vocabulary", logger.String("path", p.config.Paths.Vocabulary), logger.Error(err))
		return nil, err
	}

	ds, err := dataset.Load(p.config.Paths.Lines, v, p.segmenter, p.config.Dataset.MaxLength, p.log)
	if err != nil {
		return nil, err
	}
	trainSet, validationSet := ds.Split(p.config.Dataset.Holdout, p.config.Batch.Seed)
	held := 0
	if validationSet != nil {
		held = validationSet.Len()
	}
	p.log.Info("Dataset ready",
		logger.Int("sequences", ds.Len()),
		logger.Int("train", trainSet.Len()),
		logger.Int("validation", held),
		logger.Int("max_length", ds.MaxLength()),
		logger.Int("vocab_size", v.ModelSize()),
	)

	net, history, err := train.Train(ctx, trainSet, validationSet, p.config, p.log)
	if err != nil {
		return history, fmt.Errorf("train: %w", err)
	}

	if err := checkpoint.Save(p.config.Paths.Checkpoint, net); err != nil {
		p.log.Error("Cannot write checkpoint", logger.String("path", p.config.Paths.Checkpoint), logger.Error(err))
		return history, err
	}
	p.log.Info("Model saved", logger.String("path", p.config.Paths.Checkpoint))
	return history, nil
}
