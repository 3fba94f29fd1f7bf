// Package openaicompat implements the inference client against any
// endpoint speaking the OpenAI chat API, such as llama.cpp server,
// LM Studio, or Ollama's /v1 surface.
package openaicompat

import (
	"context"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/resilience"
)

// Client wraps the OpenAI SDK pointed at a local base URL.
type Client struct {
	api    *openai.Client
	model  string
	logger *zap.Logger
}

// NewClient builds a client. baseURL must include the version prefix,
// e.g. http://localhost:8080/v1. The API key may be empty for local
// endpoints that do not check it.
func NewClient(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *Client {
	if apiKey == "" {
		apiKey = "not-needed"
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

func (c *Client) ModelName() string { return c.model }

// Generate sends one chat completion request.
func (c *Client) Generate(ctx context.Context, req core.GenerateRequest) (*core.GenerateResponse, error) {
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, resilience.Faultf(resilience.MalformedResponse, "completion returned no choices")
	}

	if c.logger != nil {
		c.logger.Debug("generation complete",
			zap.String("model", resp.Model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	}

	return &core.GenerateResponse{
		Text:      resp.Choices[0].Message.Content,
		Model:     resp.Model,
		Duration:  time.Since(start),
		TokensOut: resp.Usage.CompletionTokens,
	}, nil
}

// Health lists models on the endpoint.
func (c *Client) Health(ctx context.Context) (*core.HealthStatus, error) {
	models, err := c.api.ListModels(ctx)
	if err != nil {
		return &core.HealthStatus{}, classify(err)
	}

	status := &core.HealthStatus{Reachable: true}
	for _, m := range models.Models {
		status.Models = append(status.Models, m.ID)
	}
	return status, nil
}

// CheckModel verifies the configured model is served by the endpoint,
// returning a model-unavailable fault naming the alternatives when it
// is not.
func (c *Client) CheckModel(ctx context.Context) error {
	status, err := c.Health(ctx)
	if err != nil {
		return err
	}
	for _, m := range status.Models {
		if m == c.model {
			return nil
		}
	}
	return resilience.Faultf(resilience.ModelUnavailable,
		"model %q is not served, available: %s", c.model, strings.Join(status.Models, ", "))
}

func classify(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "model") && (strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")):
		return resilience.NewFault(resilience.ModelUnavailable, err)
	default:
		return resilience.NewFault(resilience.Classify(err), err)
	}
}

var _ core.InferenceClient = (*Client)(nil)
