package di

import (
	"go.uber.org/dig"

	"github.com/mikey/llm-phishing-detector/internal/analysis"
	"github.com/mikey/llm-phishing-detector/internal/config"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/factory"
	"github.com/mikey/llm-phishing-detector/internal/logging"
	"github.com/mikey/llm-phishing-detector/internal/ports"
	"github.com/mikey/llm-phishing-detector/internal/trustlist"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewServiceFactory); err != nil {
		return nil, err
	}

	// Register inference client
	if err := container.Provide(func(f *factory.LLMFactory) (core.InferenceClient, error) {
		return f.CreateInferenceClient()
	}); err != nil {
		return nil, err
	}

	// Register verdict cache, nil when disabled
	if err := container.Provide(func(f *factory.CacheFactory) (core.VerdictCache, error) {
		if !f.IsCacheEnabled() {
			return nil, nil
		}
		return f.CreateVerdictCache()
	}); err != nil {
		return nil, err
	}

	// Register trust list
	if err := container.Provide(func(f *factory.ServiceFactory) *trustlist.List {
		return f.CreateTrustList()
	}); err != nil {
		return nil, err
	}

	// Register analysis service
	if err := container.Provide(func(
		f *factory.ServiceFactory,
		client core.InferenceClient,
		cache core.VerdictCache,
		trust *trustlist.List,
	) *analysis.Service {
		return f.CreateService(client, cache, trust)
	}); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
