package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/config"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/factory"
	"github.com/mikey/llm-phishing-detector/internal/logging"
)

var (
	flagProvider   string
	flagBaseURL    string
	flagModel      string
	flagTrustFile  string
	flagVerbose    bool
	flagJSONLog    bool
	flagConfigFile bool
)

var rootCmd = &cobra.Command{
	Use:   "phishing-analyzer",
	Short: "Analyze emails for phishing with a locally hosted model",
	Long: `phishing-analyzer inspects a pasted email or a mail container file
using deterministic checks plus a three-phase conversation with a locally
hosted language model, and prints a risk verdict with supporting evidence.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "ollama", "inference provider (ollama, openai)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "inference endpoint base URL")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "model name to use")
	rootCmd.PersistentFlags().StringVar(&flagTrustFile, "trusted-domains", "", "path to the trusted domains file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLog, "json-log", false, "output logs in JSON format")
	rootCmd.PersistentFlags().BoolVar(&flagConfigFile, "use-config", false, "load settings from the config file instead of flags")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(healthCmd)
}

// buildConfig assembles configuration from the config file or from flags.
func buildConfig(logger *zap.Logger) (*config.Config, error) {
	if flagConfigFile {
		cfg, err := config.New()
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
		return cfg, nil
	}

	v := config.NewEmptyViper()
	v.Set("server.filter_type", "cli")
	v.Set("cli.verbose", flagVerbose)
	v.Set("llm.provider", flagProvider)
	if flagBaseURL != "" {
		v.Set("ollama.base_url", flagBaseURL)
		v.Set("openai.base_url", flagBaseURL)
	}
	if flagModel != "" {
		v.Set("ollama.model_name", flagModel)
		v.Set("openai.model_name", flagModel)
	}
	if flagTrustFile != "" {
		v.Set("trust.domains_file", flagTrustFile)
	}
	return config.NewFromViper(v), nil
}

func newLogger() (*zap.Logger, error) {
	return logging.InitConsoleLogger(flagVerbose, flagJSONLog)
}

func newFactoryClient(cfg *config.Config, logger *zap.Logger) (core.InferenceClient, error) {
	return factory.NewLLMFactory(cfg, logger).CreateInferenceClient()
}
