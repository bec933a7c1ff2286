package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/brevis/internal/errors"
	"github.com/ppiankov/brevis/internal/logger"
)

// Summary is the outcome of an abstractive summarization attempt.
type Summary struct {
	Enabled    bool
	Provider   string
	Model      string
	Text       string
	TokensUsed int
	Warnings   []string
}

// Summarizer wraps an optional Provider.
type Summarizer struct {
	provider Provider
	config   Config
	log      logger.Logger
}

// NewSummarizer creates a Summarizer. With no provider configured the
// summarizer is disabled and Summarize returns nil.
func NewSummarizer(config Config, log logger.Logger) (*Summarizer, error) {
	if log == nil {
		log = logger.NewNop()
	}
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config, log: log}, nil
}

// IsEnabled reports whether a provider is configured.
func (s *Summarizer) IsEnabled() bool {
	return s.provider != nil
}

// ProviderName returns the configured provider name, or "" when disabled.
func (s *Summarizer) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// Summarize asks the provider for a summary of text. It returns nil when the
// summarizer is disabled, and a disabled Summary with a warning when the
// provider cannot be reached.
func (s *Summarizer) Summarize(ctx context.Context, text string) (*Summary, error) {
	if s.provider == nil {
		return nil, nil
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewInvalidInput("text to summarize is empty")
	}

	name := s.provider.Name()
	if !s.provider.IsAvailable(ctx) {
		s.log.Warn("LLM provider not available", logger.String("provider", name))
		return &Summary{
			Enabled:  false,
			Provider: name,
			Warnings: []string{fmt.Sprintf("LLM provider %s is not available", name)},
		}, nil
	}

	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Text:      text,
		Model:     s.config.Model,
		MaxTokens: s.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM summarization failed: %w", err)
	}

	s.log.Debug("LLM summary generated",
		logger.String("provider", name),
		logger.String("model", resp.Model),
		logger.Int("tokens", resp.TokensUsed),
	)
	return &Summary{
		Enabled:    true,
		Provider:   name,
		Model:      resp.Model,
		Text:       resp.Summary,
		TokensUsed: resp.TokensUsed,
	}, nil
}
