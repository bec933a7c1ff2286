package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/brevis/internal/logger"
	"github.com/ppiankov/brevis/internal/model"
	"github.com/ppiankov/brevis/internal/pipeline"
	"github.com/ppiankov/brevis/internal/worker"
)

var (
	crawlURLsFile   string
	crawlSourceName string
	crawlSkipConfig bool
	noCache         bool
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Collect news articles into the corpus file",
	Long: `Crawl fetches the index page of every configured source, follows its
article links up to crawl.article_limit and writes {url, title, content}
records to paths.corpus, grouped by source.

Fetching honours robots.txt, a per-host rate limit and the page cache.

Example:
  brevis crawl
  brevis crawl --limit 20 --workers 8
  brevis crawl --urls extra-urls.txt --source-name Manual`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

// preprocessCmd represents the preprocess command
var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Normalize the corpus into one line per article",
	Long: `Preprocess reads paths.corpus, normalizes the title and content of every
article (lowercase, no digits, no punctuation, single spaces) and writes one
line per article to paths.lines.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		lines, err := pipeline.New(cfg, log).Preprocess()
		if err != nil {
			return fmt.Errorf("preprocess failed: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d lines to %s\n", len(lines), cfg.Paths.Lines)
		return nil
	},
}

// vocabCmd represents the vocab command
var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Build the vocabulary from the line corpus",
	Long: `Vocab tokenizes paths.lines, counts every token and writes the vocabulary
to paths.vocabulary in first-seen order, one "token<TAB>frequency" per line.
The line number of a token is its index.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		v, err := pipeline.New(cfg, log).BuildVocabulary()
		if err != nil {
			return fmt.Errorf("vocabulary failed: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d tokens to %s (pad index %d)\n", v.Len(), cfg.Paths.Vocabulary, v.PadIndex())
		return nil
	},
}

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the model and write the checkpoint",
	Long: `Train encodes paths.lines with the stored vocabulary, trains the recurrent
model for train.epochs epochs and writes the parameters to paths.checkpoint.

Example:
  brevis train
  brevis train --epochs 20 --batch-size 16 --lr 0.002`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		history, err := pipeline.New(cfg, log).Train(cmd.Context())
		if err != nil {
			return fmt.Errorf("training failed: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, h := range history {
			_, _ = fmt.Fprintf(out, "epoch %d/%d  train_loss %.4f  validation_loss %.4f  (%s)\n",
				h.Epoch, cfg.Train.Epochs, h.TrainLoss, h.ValidationLoss, h.Duration.Round(time.Millisecond))
		}
		_, _ = fmt.Fprintf(out, "Model saved to %s\n", cfg.Paths.Checkpoint)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd, preprocessCmd, vocabCmd, trainCmd)

	defaults := model.DefaultConfig()

	crawlCmd.Flags().StringVar(&crawlURLsFile, "urls", "", "file with extra article URLs, one per line")
	crawlCmd.Flags().StringVar(&crawlSourceName, "source-name", "Manual", "source name for --urls articles")
	crawlCmd.Flags().BoolVar(&crawlSkipConfig, "only-urls", false, "crawl only the --urls list, not the configured sources")
	crawlCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the page cache (force fresh fetches)")
	crawlCmd.Flags().Int("limit", defaults.Crawl.ArticleLimit, "maximum article links per source")
	crawlCmd.Flags().Int("workers", defaults.Crawl.Workers, "concurrent article downloads")
	bindFlag(crawlCmd, "limit", "crawl.article_limit")
	bindFlag(crawlCmd, "workers", "crawl.workers")

	preprocessCmd.Flags().Bool("stopwords", defaults.Normalize.RemoveStopwords, "remove English stopwords")
	bindFlag(preprocessCmd, "stopwords", "normalize.remove_stopwords")

	trainCmd.Flags().Int("epochs", defaults.Train.Epochs, "training epochs")
	trainCmd.Flags().Int("batch-size", defaults.Batch.Size, "sequences per batch")
	trainCmd.Flags().Float64("lr", defaults.Train.LearningRate, "Adam learning rate")
	trainCmd.Flags().Int("max-length", defaults.Dataset.MaxLength, "tokens per sequence (pad or truncate)")
	bindFlag(trainCmd, "epochs", "train.epochs")
	bindFlag(trainCmd, "batch-size", "batch.size")
	bindFlag(trainCmd, "lr", "train.learning_rate")
	bindFlag(trainCmd, "max-length", "dataset.max_length")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if noCache {
		cfg.Cache.Enabled = false
	}
	if crawlSkipConfig {
		if crawlURLsFile == "" {
			return fmt.Errorf("--only-urls requires --urls")
		}
		cfg.Crawl.Sources = nil
	}

	p := pipeline.New(cfg, log)
	ctx := cmd.Context()

	var extra *model.Source
	if crawlURLsFile != "" {
		urls, err := worker.ReadURLsFromFile(crawlURLsFile)
		if err != nil {
			return err
		}
		log.Info("Fetching listed articles", logger.String("file", crawlURLsFile), logger.Int("urls", len(urls)))
		src := p.Crawler().CrawlURLs(ctx, crawlSourceName, urls)
		extra = &src
	}

	corpus, err := p.Crawl(ctx, extra)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, src := range corpus.Sources {
		_, _ = fmt.Fprintf(out, "%-20s %4d articles\n", src.Name, len(src.Articles))
	}
	_, _ = fmt.Fprintf(out, "Wrote %d articles to %s\n", corpus.NumArticles(), cfg.Paths.Corpus)
	return nil
}
