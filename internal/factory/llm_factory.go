package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/adapters/ollama"
	"github.com/mikey/llm-phishing-detector/internal/adapters/openaicompat"
	"github.com/mikey/llm-phishing-detector/internal/config"
	"github.com/mikey/llm-phishing-detector/internal/core"
)

// LLMFactory creates inference clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateInferenceClient creates an inference client based on the configuration
func (f *LLMFactory) CreateInferenceClient() (core.InferenceClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "ollama":
		ollamaCfg := f.cfg.GetOllama()
		return ollama.NewClient(
			ollamaCfg.BaseURL,
			ollamaCfg.ModelName,
			ollamaCfg.RequestTimeout,
			f.logger,
		), nil
	case "openai":
		openaiCfg := f.cfg.GetOpenAI()
		return openaicompat.NewClient(
			openaiCfg.BaseURL,
			openaiCfg.APIKey,
			openaiCfg.ModelName,
			openaiCfg.RequestTimeout,
			f.logger,
		), nil
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", llmConfig.Provider)
	}
}
