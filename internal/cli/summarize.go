package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/brevis/internal/inference"
	"github.com/ppiankov/brevis/internal/model"
)

var (
	summaryFile   string
	summaryURL    string
	summaryLLM    bool
	completeCount int
)

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize [text]",
	Short: "Summarize article text or a web page",
	Long: `Summarize prints the first summary.max_sentences sentences of an article.
The text comes from the argument, --file, --url or standard input.

With --llm and a configured llm.provider (openai, anthropic or ollama) the
provider writes an abstractive summary; if it fails, the extractive summary is
printed with a warning.

Example:
  brevis summarize "First sentence. Second sentence."
  brevis summarize --file article.txt
  brevis summarize --url https://example.com/news/story
  curl -s https://example.com/story.txt | brevis summarize
  BREVIS_LLM_PROVIDER=ollama BREVIS_LLM_MODEL=llama3.1 brevis summarize --llm --url https://example.com/news/story`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummarize,
}

// completeCmd represents the complete command
var completeCmd = &cobra.Command{
	Use:   "complete <prompt>",
	Short: "Continue a prompt with the trained model",
	Long: `Complete normalizes the prompt, feeds the tokens known to the vocabulary
through the trained model and prints the greedy continuation.

Example:
  brevis complete "the prime minister said" --tokens 12`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		svc, err := inference.New(cfg, log)
		if err != nil {
			return err
		}
		if err := svc.Init(); err != nil {
			return fmt.Errorf("load model: %w", err)
		}

		tokens, err := svc.Complete(args[0], completeCount)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(tokens, " "))
		return err
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd, completeCmd)

	defaults := model.DefaultConfig()

	summarizeCmd.Flags().StringVarP(&summaryFile, "file", "f", "", "read the article from a file")
	summarizeCmd.Flags().StringVarP(&summaryURL, "url", "u", "", "fetch the article from a URL")
	summarizeCmd.Flags().BoolVar(&summaryLLM, "llm", false, "ask the configured LLM provider for an abstractive summary")
	summarizeCmd.Flags().Int("sentences", defaults.Summary.MaxSentences, "sentences in the extractive summary")
	bindFlag(summarizeCmd, "sentences", "summary.max_sentences")
	summarizeCmd.MarkFlagsMutuallyExclusive("file", "url")

	completeCmd.Flags().IntVarP(&completeCount, "tokens", "n", 10, "tokens to generate")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	svc, err := inference.New(cfg, log)
	if err != nil {
		return err
	}

	article, err := readArticle(cmd, svc, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(article) == "" {
		return fmt.Errorf("no text provided")
	}

	out := cmd.OutOrStdout()
	if !summaryLLM {
		_, err = fmt.Fprintln(out, svc.Summarize(article))
		return err
	}

	summary := svc.Abstract(cmd.Context(), article)
	for _, w := range summary.Warnings {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	_, err = fmt.Fprintln(out, summary.Text)
	return err
}

// readArticle resolves the article source: argument, --file, --url, then
// standard input.
func readArticle(cmd *cobra.Command, svc *inference.Service, args []string) (string, error) {
	if len(args) > 0 && (summaryFile != "" || summaryURL != "") {
		return "", fmt.Errorf("pass the text as an argument or with --file/--url, not both")
	}

	switch {
	case len(args) == 1:
		return args[0], nil
	case summaryFile != "":
		data, err := os.ReadFile(summaryFile)
		if err != nil {
			return "", fmt.Errorf("read article: %w", err)
		}
		return string(data), nil
	case summaryURL != "":
		return svc.FetchText(cmd.Context(), summaryURL)
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
}
