package core

import (
	"context"
	"time"
)

// GenerateRequest is a single prompt sent to the local inference endpoint.
type GenerateRequest struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
}

// GenerateResponse is the raw model output for one request.
type GenerateResponse struct {
	Text      string
	Model     string
	Duration  time.Duration
	TokensOut int
}

// HealthStatus reports whether the inference endpoint is usable and which
// models it has loaded.
type HealthStatus struct {
	Reachable bool
	Models    []string
}

// InferenceClient talks to a locally hosted model endpoint. Implementations
// classify their failures with the resilience taxonomy so the pipeline can
// decide between retry and degradation.
type InferenceClient interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Health(ctx context.Context) (*HealthStatus, error)
	// CheckModel verifies the configured model is actually loaded on the
	// endpoint, returning a model-unavailable failure when it is not.
	CheckModel(ctx context.Context) error
	ModelName() string
}

// VerdictCache stores prior verdict summaries keyed by content fingerprint
// so repeated submissions of the same email skip the model entirely.
type VerdictCache interface {
	Get(ctx context.Context, fingerprint string) (*CacheEntry, error)
	Set(ctx context.Context, entry *CacheEntry) error
	Delete(ctx context.Context, fingerprint string) error
	Cleanup(ctx context.Context) error
	Close() error
}
