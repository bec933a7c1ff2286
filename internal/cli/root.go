package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/brevis/internal/logger"
	"github.com/ppiankov/brevis/internal/model"
)

// version is overridden at build time with -ldflags "-X".
var version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "brevis",
	Short: "Brevis - news corpus pipeline and article summarizer",
	Long: `Brevis collects news articles, turns them into a normalized corpus,
builds a vocabulary, trains a small recurrent language model on it and
summarizes articles from pasted text or a URL.

Typical run:
  brevis crawl
  brevis preprocess
  brevis vocab
  brevis train
  brevis summarize --url https://example.com/story`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which long-running commands
// watch for cancellation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "brevis %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.brevis/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(versionCmd)
}

// initConfig points viper at the config file and the BREVIS_* environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".brevis"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}
	configureEnv(viper.GetViper())
}

func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("BREVIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadConfig merges defaults, the config file, BREVIS_* variables and bound
// flags into a validated Config. A missing default config file is not an
// error; a missing explicit one is.
func loadConfig(v *viper.Viper) (*model.Config, error) {
	setDefaults(v, model.DefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// Decode into a zero Config: mapstructure merges slices element-wise, so
	// a prefilled default source list would survive a shorter file list.
	cfg := &model.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyProviderEnv(&cfg.LLM)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key of cfg with viper so that environment
// variables can override keys absent from the config file.
func setDefaults(v *viper.Viper, cfg *model.Config) {
	setDefaultStruct(v, "", reflect.ValueOf(cfg).Elem())
}

func setDefaultStruct(v *viper.Viper, prefix string, rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		fv := rv.Field(i)
		if fv.Kind() == reflect.Struct {
			setDefaultStruct(v, key, fv)
			continue
		}
		v.SetDefault(key, fv.Interface())
	}
}

// applyProviderEnv falls back to the provider's conventional environment
// variables when the config leaves them empty.
func applyProviderEnv(c *model.LLMConfig) {
	switch strings.ToLower(c.Provider) {
	case "openai":
		if c.APIKey == "" {
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if c.APIKey == "" {
			c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if c.BaseURL == "" {
			c.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
}

// setup loads the configuration and builds the logger for a command.
func setup() (*model.Config, logger.Logger, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using config file", logger.String("path", used))
	}
	return cfg, log, nil
}

// bindFlag ties a command flag to a config key so that an explicit flag
// overrides file and environment values.
func bindFlag(cmd *cobra.Command, flag, key string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}
