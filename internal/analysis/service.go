// Package analysis wires normalization, heuristics, the phase pipeline,
// and reconciliation into the single analyze operation the entry points
// call.
package analysis

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/heuristics"
	"github.com/mikey/llm-phishing-detector/internal/normalize"
	"github.com/mikey/llm-phishing-detector/internal/phases"
	"github.com/mikey/llm-phishing-detector/internal/reconcile"
	"github.com/mikey/llm-phishing-detector/internal/resilience"
)

// PhaseRunner is what the service needs from the model pipeline.
type PhaseRunner interface {
	Run(ctx context.Context, email *core.CanonicalEmail) ([]core.PhaseResult, error)
}

var _ PhaseRunner = (*phases.Runner)(nil)

// Service executes full analyses. Heuristics and the model pipeline run
// concurrently; the reconciler merges whatever both produced.
type Service struct {
	normalizer *normalize.Normalizer
	scorer     *heuristics.Scorer
	runner     PhaseRunner
	reconciler *reconcile.Reconciler
	cache      core.VerdictCache
	client     core.InferenceClient
	logger     *zap.Logger

	overallTimeout time.Duration
	cacheTTL       time.Duration

	checkMu      sync.Mutex
	modelChecked bool
}

// Options tune a Service.
type Options struct {
	OverallTimeout time.Duration
	CacheTTL       time.Duration
}

// NewService builds the analysis service. cache may be nil to disable
// verdict caching.
func NewService(
	normalizer *normalize.Normalizer,
	scorer *heuristics.Scorer,
	runner PhaseRunner,
	reconciler *reconcile.Reconciler,
	cache core.VerdictCache,
	client core.InferenceClient,
	logger *zap.Logger,
	opts Options,
) *Service {
	if opts.OverallTimeout <= 0 {
		opts.OverallTimeout = 5 * time.Minute
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	return &Service{
		normalizer:     normalizer,
		scorer:         scorer,
		runner:         runner,
		reconciler:     reconciler,
		cache:          cache,
		client:         client,
		logger:         logger,
		overallTimeout: opts.OverallTimeout,
		cacheTTL:       opts.CacheTTL,
	}
}

// Analyze runs the full pipeline over raw email input. Input errors are
// returned to the caller; every other failure degrades into the verdict
// itself.
func (s *Service) Analyze(ctx context.Context, raw string) (*core.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, s.overallTimeout)
	defer cancel()

	email, err := s.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}

	fingerprint := normalize.Fingerprint(email)
	if cached := s.cachedVerdict(ctx, fingerprint); cached != nil {
		return cached, nil
	}

	var (
		hResult  *heuristics.Result
		pResults []core.PhaseResult
		phaseErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		hResult, err = s.scorer.Assess(gctx, email)
		return err
	})
	g.Go(func() error {
		// Phase failure is degradation, not an analysis error, so it must
		// not cancel the heuristics.
		if err := s.ensureModel(gctx); err != nil {
			phaseErr = err
			return nil
		}
		pResults, phaseErr = s.runner.Run(gctx, email)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	verdict := s.reconciler.Reconcile(reconcile.Input{
		Email:      email,
		Heuristics: hResult,
		Phases:     pResults,
		PhaseErr:   phaseErr,
		ModelName:  s.modelName(),
	})

	s.storeVerdict(ctx, fingerprint, verdict)

	if s.logger != nil {
		s.logger.Info("analysis complete",
			zap.String("analysis_id", verdict.AnalysisID),
			zap.Int("score", verdict.Score),
			zap.String("tier", string(verdict.Tier)),
			zap.Bool("fallback", verdict.UsedFallback),
			zap.Int("red_flags", len(verdict.RedFlags)))
	}
	return verdict, nil
}

// Health reports whether the inference endpoint can serve the configured
// model right now.
func (s *Service) Health(ctx context.Context) (*core.HealthStatus, error) {
	if s.client == nil {
		return &core.HealthStatus{}, nil
	}
	return s.client.Health(ctx)
}

// ensureModel verifies the configured model is loaded before the first
// phase request. A passed check is not repeated; a failed one is retried
// on the next analysis so a model loaded later is picked up.
func (s *Service) ensureModel(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	s.checkMu.Lock()
	defer s.checkMu.Unlock()
	if s.modelChecked {
		return nil
	}
	if err := s.client.CheckModel(ctx); err != nil {
		return err
	}
	s.modelChecked = true
	return nil
}

func (s *Service) cachedVerdict(ctx context.Context, fingerprint string) *core.Verdict {
	if s.cache == nil {
		return nil
	}
	entry, err := s.cache.Get(ctx, fingerprint)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("verdict cache read failed", zap.Error(err))
		}
		return nil
	}
	if entry == nil {
		return nil
	}

	if s.logger != nil {
		s.logger.Debug("verdict cache hit", zap.String("fingerprint", fingerprint))
	}
	return &core.Verdict{
		AnalysisID:     uuidFromCache(entry),
		Score:          entry.Score,
		Tier:           entry.Tier,
		Confidence:     entry.Confidence,
		Recommendation: core.RecommendationFor(entry.Tier, nil),
		Reasoning:      "Identical content was analyzed previously; verdict served from cache.",
		ModelUsed:      "cache",
		AnalyzedAt:     entry.LastSeen,
	}
}

func (s *Service) storeVerdict(ctx context.Context, fingerprint string, verdict *core.Verdict) {
	// Degraded verdicts are not cached: the next attempt may have a
	// healthy model.
	if s.cache == nil || verdict.UsedFallback {
		return
	}
	entry := &core.CacheEntry{
		Fingerprint: fingerprint,
		Score:       verdict.Score,
		Tier:        verdict.Tier,
		Confidence:  verdict.Confidence,
		LastSeen:    verdict.AnalyzedAt,
		ExpiresAt:   verdict.AnalyzedAt.Add(s.cacheTTL),
	}
	if err := s.cache.Set(ctx, entry); err != nil && s.logger != nil {
		s.logger.Warn("verdict cache write failed", zap.Error(err))
	}
}

func (s *Service) modelName() string {
	if s.client == nil {
		return ""
	}
	return s.client.ModelName()
}

func uuidFromCache(entry *core.CacheEntry) string {
	return "cached-" + entry.Fingerprint[:12]
}

// ErrIsInput reports whether an analysis error came from the input itself
// rather than the system.
func ErrIsInput(err error) bool {
	return resilience.Classify(err) == resilience.InputError
}
