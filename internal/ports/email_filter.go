package ports

import (
	"context"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// EmailFilter defines the interface for an analysis entry point
type EmailFilter interface {
	// AnalyzeRaw analyzes raw email input and returns the verdict
	AnalyzeRaw(ctx context.Context, raw string) (*core.Verdict, error)

	// Start starts the filter service
	Start() error

	// Stop stops the filter service
	Stop() error
}
