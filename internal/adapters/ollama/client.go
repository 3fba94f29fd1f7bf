// Package ollama implements the inference client against a local Ollama
// server using its native HTTP API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/resilience"
)

// Client talks to one Ollama instance.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for the given base URL (default
// http://localhost:11434) and model name.
func NewClient(baseURL, model string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) ModelName() string { return c.model }

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response      string `json:"response"`
	Model         string `json:"model"`
	TotalDuration int64  `json:"total_duration"`
	EvalCount     int    `json:"eval_count"`
	Error         string `json:"error"`
}

// Generate sends one prompt and returns the raw completion.
func (c *Client) Generate(ctx context.Context, req core.GenerateRequest) (*core.GenerateResponse, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
		Options: generateOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, resilience.NewFault(resilience.Classify(err), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewFault(resilience.Classify(err), err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, resilience.Faultf(resilience.ModelUnavailable, "model %q not found on endpoint", c.model)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.Faultf(resilience.MalformedResponse,
			"endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var genResp generateResponse
	if err := json.Unmarshal(data, &genResp); err != nil {
		return nil, resilience.NewFault(resilience.MalformedResponse, err)
	}
	if genResp.Error != "" {
		if strings.Contains(strings.ToLower(genResp.Error), "not found") {
			return nil, resilience.Faultf(resilience.ModelUnavailable, "%s", genResp.Error)
		}
		return nil, resilience.Faultf(resilience.MalformedResponse, "%s", genResp.Error)
	}

	if c.logger != nil {
		c.logger.Debug("generation complete",
			zap.String("model", genResp.Model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("eval_count", genResp.EvalCount))
	}

	return &core.GenerateResponse{
		Text:      genResp.Response,
		Model:     genResp.Model,
		Duration:  time.Duration(genResp.TotalDuration),
		TokensOut: genResp.EvalCount,
	}, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Health checks reachability and whether the configured model is loaded.
func (c *Client) Health(ctx context.Context) (*core.HealthStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &core.HealthStatus{}, resilience.NewFault(resilience.Unreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &core.HealthStatus{}, resilience.Faultf(resilience.Unreachable,
			"endpoint returned status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return &core.HealthStatus{Reachable: true}, resilience.NewFault(resilience.MalformedResponse, err)
	}

	status := &core.HealthStatus{Reachable: true}
	for _, m := range tags.Models {
		status.Models = append(status.Models, m.Name)
	}
	return status, nil
}

// CheckModel verifies the configured model is present, returning a
// model-unavailable fault naming the loaded alternatives when it is not.
func (c *Client) CheckModel(ctx context.Context) error {
	status, err := c.Health(ctx)
	if err != nil {
		return err
	}
	for _, m := range status.Models {
		if m == c.model || strings.SplitN(m, ":", 2)[0] == c.model {
			return nil
		}
	}
	return resilience.Faultf(resilience.ModelUnavailable,
		"model %q is not loaded, available: %s", c.model, strings.Join(status.Models, ", "))
}

var _ core.InferenceClient = (*Client)(nil)
