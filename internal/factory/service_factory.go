package factory

import (
	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/analysis"
	"github.com/mikey/llm-phishing-detector/internal/config"
	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/heuristics"
	"github.com/mikey/llm-phishing-detector/internal/normalize"
	"github.com/mikey/llm-phishing-detector/internal/phases"
	"github.com/mikey/llm-phishing-detector/internal/reconcile"
	"github.com/mikey/llm-phishing-detector/internal/resilience"
	"github.com/mikey/llm-phishing-detector/internal/trustlist"
)

// ServiceFactory assembles the analysis service from its parts
type ServiceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(cfg *config.Config, logger *zap.Logger) *ServiceFactory {
	return &ServiceFactory{cfg: cfg, logger: logger}
}

// CreateTrustList loads the trusted-domain file. A missing file is not
// fatal: suffix-based trust for .gov and .edu still applies.
func (f *ServiceFactory) CreateTrustList() *trustlist.List {
	trustCfg := f.cfg.GetTrust()
	list := trustlist.New(trustlist.Deltas{
		Government:     int(trustCfg.GovernmentDelta),
		Education:      int(trustCfg.EducationDelta),
		KnownCorporate: int(trustCfg.CorporateDelta),
	}, f.logger)

	if trustCfg.DomainsFile != "" {
		if err := list.LoadFile(trustCfg.DomainsFile); err != nil {
			f.logger.Warn("could not load trusted domains file",
				zap.String("path", trustCfg.DomainsFile),
				zap.Error(err))
		}
	}
	return list
}

// CreateService wires the full analysis pipeline
func (f *ServiceFactory) CreateService(client core.InferenceClient, cache core.VerdictCache, trust *trustlist.List) *analysis.Service {
	llmCfg := f.cfg.GetLLM()
	retryCfg := f.cfg.GetRetry()

	retry := resilience.DefaultRetryConfig()
	if retryCfg.MaxAttempts > 0 {
		retry.MaxAttempts = retryCfg.MaxAttempts
	}
	if retryCfg.InitialDelay > 0 {
		retry.InitialDelay = retryCfg.InitialDelay
	}
	if retryCfg.MaxDelay > 0 {
		retry.MaxDelay = retryCfg.MaxDelay
	}

	phaseSet := make([]core.PhaseName, 0, len(llmCfg.Phases))
	for _, p := range llmCfg.Phases {
		phaseSet = append(phaseSet, core.PhaseName(p))
	}

	limiter := resilience.NewLimiter(llmCfg.RequestsPerSecond, llmCfg.Burst)
	runner := phases.NewRunner(client, limiter, retry, phases.Config{
		PhaseTimeout: llmCfg.PhaseTimeout,
		MaxTokens:    llmCfg.MaxTokens,
		Temperature:  llmCfg.Temperature,
		Phases:       phaseSet,
	}, f.logger)

	ttl, err := f.cfg.GetDuration("cache.ttl")
	if err != nil {
		ttl = 0
	}

	return analysis.NewService(
		normalize.New(f.logger),
		heuristics.NewScorer(trust, f.logger),
		runner,
		reconcile.New(f.logger),
		cache,
		client,
		f.logger,
		analysis.Options{
			OverallTimeout: llmCfg.OverallTimeout,
			CacheTTL:       ttl,
		},
	)
}
