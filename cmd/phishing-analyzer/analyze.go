package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/adapters/filter"
	"github.com/mikey/llm-phishing-detector/internal/analysis"
	"github.com/mikey/llm-phishing-detector/internal/factory"
)

var flagInputFile string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one email from a file or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Sync()

		cfg, err := buildConfig(logger)
		if err != nil {
			return err
		}

		raw, err := readInput()
		if err != nil {
			return err
		}

		llmFactory := factory.NewLLMFactory(cfg, logger)
		client, err := llmFactory.CreateInferenceClient()
		if err != nil {
			return err
		}

		svcFactory := factory.NewServiceFactory(cfg, logger)
		trust := svcFactory.CreateTrustList()
		// No verdict cache for one-off runs.
		service := svcFactory.CreateService(client, nil, trust)

		cli, err := filter.NewCliFilter(service, logger, flagVerbose)
		if err != nil {
			return err
		}

		verdict, err := cli.AnalyzeRaw(context.Background(), raw)
		if err != nil {
			if analysis.ErrIsInput(err) {
				return fmt.Errorf("input problem: %w", err)
			}
			return err
		}

		logger.Debug("analysis finished", zap.String("analysis_id", verdict.AnalysisID))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&flagInputFile, "file", "f", "", "input email file (stdin when omitted)")
}

func readInput() (string, error) {
	if flagInputFile != "" {
		data, err := os.ReadFile(flagInputFile)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", flagInputFile, err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}
