package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/brevis/internal/logger"
)

// Configuration validation errors.
var (
	ErrInvalidMaxLength    = errors.New("dataset.max_length must be at least 1")
	ErrInvalidHoldout      = errors.New("dataset.holdout must be in [0, 1)")
	ErrInvalidBatchSize    = errors.New("batch.size must be at least 1")
	ErrInvalidEmbedSize    = errors.New("model.embed_size must be at least 1")
	ErrInvalidHiddenSize   = errors.New("model.hidden_size must be at least 1")
	ErrInvalidEpochs       = errors.New("train.epochs must be at least 1")
	ErrInvalidLearningRate = errors.New("train.learning_rate must be positive")
	ErrInvalidTarget       = errors.New("train.target must be 'next' or 'identity'")
	ErrInvalidGradClip     = errors.New("train.grad_clip must be non-negative")
	ErrInvalidSentences    = errors.New("summary.max_sentences must be at least 1")
	ErrInvalidArticleLimit = errors.New("crawl.article_limit must be at least 1")
	ErrSourceMissingURL    = errors.New("crawl source url is required")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Target modes for the training loss.
const (
	TargetNext     = "next"     // predict the token at position t+1
	TargetIdentity = "identity" // reproduce the token at position t
)

// Config is the complete brevis configuration.
type Config struct {
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Normalize NormalizeConfig `yaml:"normalize" mapstructure:"normalize"`
	Dataset   DatasetConfig   `yaml:"dataset" mapstructure:"dataset"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Model     ModelConfig     `yaml:"model" mapstructure:"model"`
	Train     TrainConfig     `yaml:"train" mapstructure:"train"`
	Summary   SummaryConfig   `yaml:"summary" mapstructure:"summary"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Logging   logger.Config   `yaml:"logging" mapstructure:"logging"`
}

// PathsConfig locates the persisted artifacts of the pipeline.
type PathsConfig struct {
	Corpus     string `yaml:"corpus" mapstructure:"corpus"`
	Lines      string `yaml:"lines" mapstructure:"lines"`
	Vocabulary string `yaml:"vocabulary" mapstructure:"vocabulary"`
	Checkpoint string `yaml:"checkpoint" mapstructure:"checkpoint"`
}

type NormalizeConfig struct {
	RemoveStopwords bool `yaml:"remove_stopwords" mapstructure:"remove_stopwords"`
}

type DatasetConfig struct {
	MaxLength int `yaml:"max_length" mapstructure:"max_length"`
	// Holdout is the fraction of lines kept out of training for validation.
	// Zero validates on the training batches.
	Holdout float64 `yaml:"holdout" mapstructure:"holdout"`
}

type BatchConfig struct {
	Size     int   `yaml:"size" mapstructure:"size"`
	Shuffle  bool  `yaml:"shuffle" mapstructure:"shuffle"`
	DropLast bool  `yaml:"drop_last" mapstructure:"drop_last"`
	Seed     int64 `yaml:"seed" mapstructure:"seed"`
}

type ModelConfig struct {
	EmbedSize  int `yaml:"embed_size" mapstructure:"embed_size"`
	HiddenSize int `yaml:"hidden_size" mapstructure:"hidden_size"`
}

type TrainConfig struct {
	Epochs       int     `yaml:"epochs" mapstructure:"epochs"`
	LearningRate float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
	Target       string  `yaml:"target" mapstructure:"target"`
	GradClip     float64 `yaml:"grad_clip" mapstructure:"grad_clip"`
}

type SummaryConfig struct {
	MaxSentences int `yaml:"max_sentences" mapstructure:"max_sentences"`
}

// HTTPConfig configures page fetching.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the fetched-page cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// CrawlConfig configures corpus collection.
type CrawlConfig struct {
	Sources           []SourceConfig `yaml:"sources" mapstructure:"sources"`
	ArticleLimit      int            `yaml:"article_limit" mapstructure:"article_limit"`
	Workers           int            `yaml:"workers" mapstructure:"workers"`
	RequestsPerSecond float64        `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int            `yaml:"burst" mapstructure:"burst"`
	RespectRobots     bool           `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// SourceConfig is one news site to crawl.
type SourceConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	URL  string `yaml:"url" mapstructure:"url"`
}

// LLMConfig configures the optional abstractive summary provider.
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig returns the defaults used when no config file is present.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Corpus:     "data/articles.json",
			Lines:      "data/preprocessed_data.txt",
			Vocabulary: "data/vocabulary.txt",
			Checkpoint: "data/model.bin",
		},
		Dataset: DatasetConfig{
			MaxLength: 512,
		},
		Batch: BatchConfig{
			Size:    32,
			Shuffle: true,
			Seed:    1,
		},
		Model: ModelConfig{
			EmbedSize:  128,
			HiddenSize: 256,
		},
		Train: TrainConfig{
			Epochs:       10,
			LearningRate: 0.001,
			Target:       TargetNext,
			GradClip:     5,
		},
		Summary: SummaryConfig{
			MaxSentences: 5,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Brevis/0.1 (+https://github.com/ppiankov/brevis)",
			MaxBodyBytes: 2_000_000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "data/cache",
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Crawl: CrawlConfig{
			Sources: []SourceConfig{
				{Name: "BBC", URL: "https://www.bbc.com/news"},
				{Name: "The Guardian", URL: "https://www.theguardian.com/international"},
				{Name: "CNN", URL: "https://edition.cnn.com/world"},
				{Name: "India Today", URL: "https://www.indiatoday.in"},
				{Name: "News18", URL: "https://www.news18.com"},
			},
			ArticleLimit:      100,
			Workers:           4,
			RequestsPerSecond: 2,
			Burst:             2,
			RespectRobots:     true,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 400,
		},
		Logging: logger.Config{
			Level: "info",
		},
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Dataset.MaxLength < 1 {
		return ErrInvalidMaxLength
	}
	if c.Dataset.Holdout < 0 || c.Dataset.Holdout >= 1 {
		return ErrInvalidHoldout
	}
	if c.Batch.Size < 1 {
		return ErrInvalidBatchSize
	}
	if c.Model.EmbedSize < 1 {
		return ErrInvalidEmbedSize
	}
	if c.Model.HiddenSize < 1 {
		return ErrInvalidHiddenSize
	}
	if c.Train.Epochs < 1 {
		return ErrInvalidEpochs
	}
	if c.Train.LearningRate <= 0 {
		return ErrInvalidLearningRate
	}
	if c.Train.Target != TargetNext && c.Train.Target != TargetIdentity {
		return ErrInvalidTarget
	}
	if c.Train.GradClip < 0 {
		return ErrInvalidGradClip
	}
	if c.Summary.MaxSentences < 1 {
		return ErrInvalidSentences
	}
	if c.Crawl.ArticleLimit < 1 {
		return ErrInvalidArticleLimit
	}
	for i, src := range c.Crawl.Sources {
		if src.URL == "" {
			return fmt.Errorf("%w: crawl.sources[%d]", ErrSourceMissingURL, i)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	return nil
}
