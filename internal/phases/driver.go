package phases

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/resilience"
)

// Config bounds each phase request. Phases selects which phases run, in
// their fixed order; an empty set means all of them. Dropping the intent
// phase leaves no model verdict, so downstream falls back to heuristics.
type Config struct {
	PhaseTimeout time.Duration
	MaxTokens    int
	Temperature  float64
	Phases       []core.PhaseName
}

// DefaultConfig suits a locally hosted 7B-class model.
func DefaultConfig() Config {
	return Config{
		PhaseTimeout: 60 * time.Second,
		MaxTokens:    1000,
		Temperature:  0.1,
		Phases:       AllPhases(),
	}
}

// AllPhases returns the full phase set in execution order.
func AllPhases() []core.PhaseName {
	return []core.PhaseName{core.PhaseStructural, core.PhaseContent, core.PhaseIntent}
}

func (c Config) phaseEnabled(name core.PhaseName) bool {
	if len(c.Phases) == 0 {
		return true
	}
	for _, p := range c.Phases {
		if p == name {
			return true
		}
	}
	return false
}

// Runner executes the three phases in order against an inference client.
type Runner struct {
	client  core.InferenceClient
	limiter *resilience.Limiter
	retry   resilience.RetryConfig
	cfg     Config
	logger  *zap.Logger
}

// NewRunner wires a phase runner. limiter may be nil.
func NewRunner(client core.InferenceClient, limiter *resilience.Limiter, retry resilience.RetryConfig, cfg Config, logger *zap.Logger) *Runner {
	if cfg.PhaseTimeout <= 0 {
		cfg.PhaseTimeout = DefaultConfig().PhaseTimeout
	}
	return &Runner{client: client, limiter: limiter, retry: retry, cfg: cfg, logger: logger}
}

// Run drives the configured phases. The structural and content phases are
// advisory: their failures are recorded in the returned results and the
// run continues. The intent phase is mandatory when enabled, so its
// failure is returned as an error alongside whatever completed before it.
func (r *Runner) Run(ctx context.Context, email *core.CanonicalEmail) ([]core.PhaseResult, error) {
	results := make([]core.PhaseResult, 0, 3)

	var structural *core.StructuralFindings
	if r.cfg.phaseEnabled(core.PhaseStructural) {
		structural = r.runStructural(ctx, email, &results)
	}
	var content *core.ContentFindings
	if r.cfg.phaseEnabled(core.PhaseContent) {
		content = r.runContent(ctx, email, structural, &results)
	}
	if !r.cfg.phaseEnabled(core.PhaseIntent) {
		return results, nil
	}

	prompt := intentPrompt(email, structural, content)
	raw, findings, err := runPhase(ctx, r, prompt, parseIntent)
	result := core.PhaseResult{Name: core.PhaseIntent, RawResponse: raw}
	if err != nil {
		results = append(results, result)
		r.logPhaseFailure(core.PhaseIntent, err)
		return results, err
	}
	result.Valid = true
	result.Intent = findings
	results = append(results, result)
	return results, nil
}

func (r *Runner) runStructural(ctx context.Context, email *core.CanonicalEmail, results *[]core.PhaseResult) *core.StructuralFindings {
	raw, findings, err := runPhase(ctx, r, structuralPrompt(email), parseStructural)
	result := core.PhaseResult{Name: core.PhaseStructural, RawResponse: raw}
	if err != nil {
		r.logPhaseFailure(core.PhaseStructural, err)
		*results = append(*results, result)
		return nil
	}
	result.Valid = true
	result.Structural = findings
	*results = append(*results, result)
	return findings
}

func (r *Runner) runContent(ctx context.Context, email *core.CanonicalEmail, structural *core.StructuralFindings, results *[]core.PhaseResult) *core.ContentFindings {
	raw, findings, err := runPhase(ctx, r, contentPrompt(email, structural), parseContent)
	result := core.PhaseResult{Name: core.PhaseContent, RawResponse: raw}
	if err != nil {
		r.logPhaseFailure(core.PhaseContent, err)
		*results = append(*results, result)
		return nil
	}
	result.Valid = true
	result.Content = findings
	*results = append(*results, result)
	return findings
}

// runPhase sends one prompt, parses the response, and on a parse failure
// re-prompts once with stricter instructions before giving up.
func runPhase[T any](ctx context.Context, r *Runner, prompt string, parse func(string) (*T, error)) (string, *T, error) {
	raw, err := r.generate(ctx, prompt)
	if err != nil {
		return "", nil, err
	}

	findings, err := parse(raw)
	if err == nil {
		return raw, findings, nil
	}
	if resilience.Classify(err) != resilience.MalformedResponse {
		return raw, nil, err
	}

	retryRaw, retryErr := r.generate(ctx, prompt+strictRetrySuffix)
	if retryErr != nil {
		return raw, nil, err
	}
	findings, parseErr := parse(retryRaw)
	if parseErr != nil {
		return retryRaw, nil, parseErr
	}
	return retryRaw, findings, nil
}

func (r *Runner) generate(ctx context.Context, prompt string) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	var raw string
	err := resilience.Retry(ctx, r.retry, r.logger, func(ctx context.Context) error {
		phaseCtx, cancel := context.WithTimeout(ctx, r.cfg.PhaseTimeout)
		defer cancel()

		resp, err := r.client.Generate(phaseCtx, core.GenerateRequest{
			Prompt:      prompt,
			System:      systemPrompt,
			MaxTokens:   r.cfg.MaxTokens,
			Temperature: r.cfg.Temperature,
		})
		if err != nil {
			return err
		}
		raw = resp.Text
		return nil
	})
	return raw, err
}

func (r *Runner) logPhaseFailure(phase core.PhaseName, err error) {
	if r.logger == nil {
		return
	}
	r.logger.Warn("phase failed",
		zap.String("phase", string(phase)),
		zap.String("kind", string(resilience.Classify(err))),
		zap.Error(err))
}
