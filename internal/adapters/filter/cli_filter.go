package filter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/analysis"
	"github.com/mikey/llm-phishing-detector/internal/core"
)

// CliFilter analyzes one email and prints a report to stdout.
type CliFilter struct {
	service *analysis.Service
	logger  *zap.Logger
	verbose bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(service *analysis.Service, logger *zap.Logger, verbose bool) (*CliFilter, error) {
	return &CliFilter{
		service: service,
		logger:  logger,
		verbose: verbose,
	}, nil
}

// AnalyzeRaw analyzes raw email input and displays the results
func (f *CliFilter) AnalyzeRaw(ctx context.Context, raw string) (*core.Verdict, error) {
	f.logger.Debug("Analyzing email", zap.Int("input_bytes", len(raw)))

	if f.verbose {
		preview := raw
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Printf("\n=== Input Preview ===\n%s\n", preview)
	}

	fmt.Printf("\n=== Analysis ===\n")
	fmt.Printf("Running three-phase analysis...\n")
	startTime := time.Now()
	verdict, err := f.service.Analyze(ctx, raw)
	if err != nil {
		f.logger.Error("Failed to analyze email", zap.Error(err))
		fmt.Printf("Error: %v\n", err)
		return nil, err
	}
	duration := time.Since(startTime)

	fmt.Printf("\n=== Verdict ===\n")
	fmt.Printf("Analysis ID: %s\n", verdict.AnalysisID)
	fmt.Printf("Risk score: %d / 10 (%s)\n", verdict.Score, verdict.Tier)
	fmt.Printf("Confidence: %.2f\n", verdict.Confidence)
	fmt.Printf("Recommendation: %s\n", verdict.Recommendation)
	if verdict.UsedFallback {
		fmt.Printf("NOTE: model analysis unavailable (%s), heuristics only\n", verdict.DegradationReason)
	} else if verdict.DegradationReason != "" {
		fmt.Printf("NOTE: %s verdict, review manually\n", verdict.DegradationReason)
	}

	if len(verdict.RedFlags) > 0 {
		fmt.Printf("\n=== Red Flags ===\n")
		for _, flag := range verdict.RedFlags {
			fmt.Printf("- [%s] %s (%s)\n", strings.ToUpper(string(flag.Severity)), flag.Label, flag.Source)
			if f.verbose && flag.Explanation != "" {
				fmt.Printf("    %s\n", flag.Explanation)
			}
		}
	}

	fmt.Printf("\n=== Reasoning ===\n%s\n", verdict.Reasoning)
	fmt.Printf("\nModel used: %s\n", verdict.ModelUsed)
	fmt.Printf("Processing time: %v\n", duration)

	return verdict, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
