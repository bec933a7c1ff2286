// Package inference serves summaries and continuations from a trained model.
//
// A Service is built once with New and initialized once with Init, which loads
// the vocabulary and checkpoint. Extractive summaries and URL fetching do not
// need the model and work before Init.
package inference

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/ppiankov/brevis/internal/checkpoint"
	"github.com/ppiankov/brevis/internal/errors"
	"github.com/ppiankov/brevis/internal/llm"
	"github.com/ppiankov/brevis/internal/logger"
	"github.com/ppiankov/brevis/internal/model"
	"github.com/ppiankov/brevis/internal/nn"
	"github.com/ppiankov/brevis/internal/pipeline"
	"github.com/ppiankov/brevis/internal/text"
	"github.com/ppiankov/brevis/internal/vocab"
)

// Summary methods.
const (
	MethodExtractive  = "extractive"
	MethodAbstractive = "abstractive"
)

// Summary is the result of Abstract.
type Summary struct {
	Text     string
	Method   string
	Provider string
	Model    string
	Warnings []string
}

// Service is the inference boundary.
type Service struct {
	config     *model.Config
	log        logger.Logger
	segmenter  text.Segmenter
	normalizer *text.Normalizer
	fetcher    *pipeline.Fetcher
	extractor  *pipeline.Extractor
	summarizer *llm.Summarizer

	mu    sync.RWMutex
	vocab *vocab.Vocabulary
	net   *nn.RNN
}

// New creates a Service. It fails only when the configured LLM provider is
// unknown or incomplete.
func New(cfg *model.Config, log logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.NewNop()
	}

	summarizer, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM, cfg.HTTP), log)
	if err != nil {
		return nil, fmt.Errorf("create summarizer: %w", err)
	}

	var opts []text.NormalizerOption
	if cfg.Normalize.RemoveStopwords {
		opts = append(opts, text.WithStopwords())
	}

	return &Service{
		config:     cfg,
		log:        log,
		segmenter:  text.NewSegmenter(),
		normalizer: text.NewNormalizer(opts...),
		fetcher:    pipeline.NewFetcherFromConfig(cfg),
		extractor:  pipeline.NewExtractor(),
		summarizer: summarizer,
	}, nil
}

// Init loads the vocabulary and checkpoint. It may be called once; later calls
// fail without touching the loaded model.
func (s *Service) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded() {
		return errors.NewInvalidInput("inference service already initialized")
	}

	v, err := vocab.Load(s.config.Paths.Vocabulary)
	if err != nil {
		s.log.Error("Cannot load vocabulary", logger.String("path", s.config.Paths.Vocabulary), logger.Error(err))
		return err
	}

	shape := nn.Shape{
		VocabSize:  v.ModelSize(),
		EmbedSize:  s.config.Model.EmbedSize,
		HiddenSize: s.config.Model.HiddenSize,
	}
	net, err := checkpoint.Load(s.config.Paths.Checkpoint, shape)
	if err != nil {
		s.log.Error("Cannot load checkpoint", logger.String("path", s.config.Paths.Checkpoint), logger.Error(err))
		return err
	}

	s.vocab, s.net = v, net
	s.log.Info("Model loaded",
		logger.String("checkpoint", s.config.Paths.Checkpoint),
		logger.String("shape", shape.String()),
	)
	return nil
}

// loaded reports whether Init has completed. Callers hold s.mu.
func (s *Service) loaded() bool {
	return s.net != nil
}

// Summarize returns the first summary.max_sentences sentences of article
// joined by single spaces. Shorter articles are returned whole.
func (s *Service) Summarize(article string) string {
	sentences := s.segmenter.Sentences(article)
	if n := s.config.Summary.MaxSentences; len(sentences) > n {
		sentences = sentences[:n]
	}
	return strings.Join(sentences, " ")
}

// FetchText downloads rawURL and returns the text of its paragraphs. Any
// transport or parsing failure is returned as a FETCH_FAILED error.
func (s *Service) FetchText(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", errors.NewFetchFailed(rawURL, fmt.Errorf("not an http(s) URL"))
	}

	res, err := s.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		s.log.Error("Error fetching text from URL", logger.String("url", rawURL), logger.Error(err))
		return "", errors.NewFetchFailed(rawURL, err)
	}

	if res.Truncated {
		s.log.Warn("Page body truncated at size limit", logger.String("url", rawURL))
	}
	content, err := s.extractor.Paragraphs(res.HTML)
	if err != nil {
		s.log.Error("Error extracting text", logger.String("url", rawURL), logger.Error(err))
		return "", errors.NewFetchFailed(rawURL, err)
	}
	return content, nil
}

// Abstract asks the configured LLM provider for a summary of article. Without
// a provider, or when the provider fails, it returns the extractive summary
// and records why in the warnings.
func (s *Service) Abstract(ctx context.Context, article string) *Summary {
	extractive := func(warnings ...string) *Summary {
		return &Summary{Text: s.Summarize(article), Method: MethodExtractive, Warnings: warnings}
	}

	if !s.summarizer.IsEnabled() {
		return extractive("no LLM provider configured; using extractive summary")
	}

	s.log.Debug("Requesting abstractive summary", logger.String("provider", s.summarizer.ProviderName()))
	res, err := s.summarizer.Summarize(ctx, article)
	switch {
	case err != nil:
		s.log.Warn("LLM summary failed, falling back to extractive", logger.Error(err))
		return extractive(err.Error())
	case res == nil || !res.Enabled:
		var warnings []string
		if res != nil {
			warnings = res.Warnings
		}
		return extractive(warnings...)
	}

	return &Summary{
		Text:     res.Text,
		Method:   MethodAbstractive,
		Provider: res.Provider,
		Model:    res.Model,
	}
}

// Complete normalizes prompt, feeds its known tokens to the model and returns
// up to n predicted tokens. The padding index is never predicted.
func (s *Service) Complete(prompt string, n int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded() {
		return nil, errors.NewNotInitialized("inference service has no model; call Init first")
	}
	if n < 1 {
		return nil, errors.NewInvalidInput(fmt.Sprintf("token count must be at least 1, got %d", n))
	}

	var ids []int
	for _, tok := range s.segmenter.Words(s.normalizer.Normalize(prompt)) {
		if i, ok := s.vocab.Index(tok); ok {
			ids = append(ids, i)
		}
	}
	if len(ids) == 0 {
		return nil, errors.NewInvalidInput("prompt has no tokens in the vocabulary")
	}

	next, err := s.net.Greedy(ids, n, s.vocab.PadIndex())
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(next))
	for _, i := range next {
		tok, ok := s.vocab.Token(i)
		if !ok {
			return nil, errors.NewInternal(fmt.Errorf("predicted index %d has no token", i))
		}
		out = append(out, tok)
	}
	return out, nil
}
