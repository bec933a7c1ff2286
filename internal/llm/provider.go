// Package llm asks an optional language model provider for an abstractive
// summary of article text.
package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxPromptRunes bounds the article text sent to a provider.
const maxPromptRunes = 12000

// systemPrompt frames every request.
const systemPrompt = "You are a news editor who writes short, neutral summaries of articles."

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates a summary of the request text
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// Text is the article text to summarize
	Text string

	// Prompt is an optional custom prompt (if empty, BuildPrompt(Text) is used)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	Summary    string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI and Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		MaxTokens: 400,
	}
}

// BuildPrompt constructs the default summarization prompt for text. Long
// texts are cut at maxPromptRunes.
func BuildPrompt(text string) string {
	text = strings.TrimSpace(text)
	truncated := false
	if utf8.RuneCountInString(text) > maxPromptRunes {
		text = string([]rune(text)[:maxPromptRunes])
		truncated = true
	}

	var b strings.Builder
	b.WriteString("Summarize the following news article in 3-5 sentences.\n")
	b.WriteString("Use only facts stated in the article. Do not add opinions or outside information.\n")
	if truncated {
		b.WriteString("The article was truncated; summarize the part shown.\n")
	}
	fmt.Fprintf(&b, "\nArticle:\n%s\n", text)
	return b.String()
}

// resolve fills the model and token limit of req from the provider config.
func resolve(req SummarizeRequest, config Config, defaultModel string) (prompt, model string, maxTokens int) {
	prompt = req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req.Text)
	}

	model = req.Model
	if model == "" {
		model = config.Model
	}
	if model == "" {
		model = defaultModel
	}

	maxTokens = req.MaxTokens
	if maxTokens == 0 {
		maxTokens = config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 400
	}
	return prompt, model, maxTokens
}
