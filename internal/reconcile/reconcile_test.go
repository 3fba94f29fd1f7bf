package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/heuristics"
	"github.com/mikey/llm-phishing-detector/internal/resilience"
)

func intentResult(findings *core.IntentFindings) core.PhaseResult {
	return core.PhaseResult{Name: core.PhaseIntent, Valid: true, Intent: findings}
}

func advisoryResults() []core.PhaseResult {
	return []core.PhaseResult{
		{Name: core.PhaseStructural, Valid: true, Structural: &core.StructuralFindings{Summary: "ok"}},
		{Name: core.PhaseContent, Valid: true, Content: &core.ContentFindings{Summary: "ok"}},
	}
}

func phishEmail() *core.CanonicalEmail {
	return &core.CanonicalEmail{
		Headers: map[string]string{
			"from":    "IRS Refunds <refunds@irs-tax-portal.com>",
			"subject": "Your refund is waiting, verify your identity",
		},
		PlainBody: "Dear taxpayer, verify your identity and password at the secure portal within 24 hours.",
		URLs: []core.URLRef{
			{Target: "http://irs-tax-portal.com/verify", DisplayText: "irs.gov", Domain: "irs-tax-portal.com"},
		},
	}
}

func TestFallbackWhenIntentMissing(t *testing.T) {
	r := New(nil)
	hFlags := []core.RedFlag{
		{Label: "requests sensitive information", Severity: core.SeverityHigh, Source: core.SourceHeuristic},
		{Label: "urgency language", Severity: core.SeverityMedium, Source: core.SourceHeuristic},
	}

	verdict := r.Reconcile(Input{
		Email:      phishEmail(),
		Heuristics: &heuristics.Result{Flags: hFlags, Score: 6},
		PhaseErr:   resilience.Faultf(resilience.Unreachable, "connection refused"),
		ModelName:  "mistral",
	})

	assert.True(t, verdict.UsedFallback)
	assert.Equal(t, 6, verdict.Score)
	assert.Equal(t, core.TierMedium, verdict.Tier)
	assert.Equal(t, string(resilience.Unreachable), verdict.DegradationReason)
	assert.LessOrEqual(t, verdict.Confidence, FallbackConfidenceCeiling)
	assert.Contains(t, verdict.Reasoning, "deterministic checks only")
	assert.NotEmpty(t, verdict.AnalysisID)
}

func TestFallbackWhenIntentDisabled(t *testing.T) {
	// No phase error and no intent result means the intent phase was
	// configured off: heuristics-only, but nothing degraded.
	r := New(nil)
	verdict := r.Reconcile(Input{
		Email: phishEmail(),
		Heuristics: &heuristics.Result{
			Flags: []core.RedFlag{
				{Label: "urgency language", Severity: core.SeverityMedium, Source: core.SourceHeuristic},
			},
			Score: 3,
		},
		Phases: advisoryResults(),
	})

	assert.True(t, verdict.UsedFallback)
	assert.Empty(t, verdict.DegradationReason)
	assert.Equal(t, 3, verdict.Score)
	assert.Contains(t, verdict.Reasoning, "was not run")
}

func TestFallbackIsTotalWithNoInputs(t *testing.T) {
	r := New(nil)
	verdict := r.Reconcile(Input{Email: &core.CanonicalEmail{PlainBody: "hello"}})

	require.NotNil(t, verdict)
	assert.True(t, verdict.UsedFallback)
	assert.Equal(t, 1, verdict.Score)
	assert.Equal(t, core.TierLow, verdict.Tier)
	assert.Equal(t, core.ActionIgnore, verdict.Recommendation)
}

func TestTrustDeltaLowersScore(t *testing.T) {
	r := New(nil)
	email := &core.CanonicalEmail{
		Headers:   map[string]string{"from": "refunds@irs.gov", "subject": "refund status"},
		PlainBody: "Your refund was processed.",
	}

	verdict := r.Reconcile(Input{
		Email: email,
		Heuristics: &heuristics.Result{
			Trust: []core.TrustAssessment{
				{Domain: "irs.gov", TrustDelta: -4, Category: core.DomainGovernment},
			},
			Score: 1,
		},
		Phases: append(advisoryResults(), intentResult(&core.IntentFindings{
			RiskScore:  6,
			Confidence: 0.8,
			Reasoning:  "mildly suspicious wording",
		})),
	})

	assert.False(t, verdict.UsedFallback)
	assert.Equal(t, 2, verdict.Score)
	assert.Equal(t, core.TierLow, verdict.Tier)
	assert.Contains(t, verdict.Reasoning, "irs.gov")
}

func TestHighSeverityHeuristicFloorsTrustedScore(t *testing.T) {
	// A lookalike of a trusted domain must not ride the trust delta down
	// into the low tiers.
	r := New(nil)
	email := phishEmail()

	verdict := r.Reconcile(Input{
		Email: email,
		Heuristics: &heuristics.Result{
			Flags: []core.RedFlag{
				{Label: "lookalike domain", Severity: core.SeverityHigh, Source: core.SourceHeuristic},
			},
			Trust: []core.TrustAssessment{
				{Domain: "irs-tax-portal.com", TrustDelta: -4, Category: core.DomainGovernment},
			},
			Score: 4,
		},
		Phases: append(advisoryResults(), intentResult(&core.IntentFindings{
			RiskScore:  9,
			Confidence: 0.9,
			RedFlags: []core.IntentRedFlag{
				{Label: "identity verification lure", Severity: core.SeverityHigh, Evidence: "verify your identity"},
			},
			Reasoning: "impersonates a tax agency",
		})),
	})

	assert.GreaterOrEqual(t, verdict.Score, core.HighTierFloor)
	assert.Equal(t, core.TierHigh, verdict.Tier)
	assert.Equal(t, core.ActionBlock, verdict.Recommendation)
}

func TestScoreClampedToRange(t *testing.T) {
	r := New(nil)
	email := &core.CanonicalEmail{
		Headers:   map[string]string{"from": "a@mit.edu"},
		PlainBody: "seminar schedule attached",
	}

	verdict := r.Reconcile(Input{
		Email: email,
		Heuristics: &heuristics.Result{
			Trust: []core.TrustAssessment{
				{Domain: "mit.edu", TrustDelta: -3, Category: core.DomainEducation},
			},
			Score: 1,
		},
		Phases: append(advisoryResults(), intentResult(&core.IntentFindings{
			RiskScore:  2,
			Confidence: 0.9,
		})),
	})

	assert.Equal(t, 1, verdict.Score)
}

func TestUngroundedFlagsDropped(t *testing.T) {
	r := New(nil)
	email := phishEmail()

	verdict := r.Reconcile(Input{
		Email:      email,
		Heuristics: &heuristics.Result{Score: 1},
		Phases: append(advisoryResults(), intentResult(&core.IntentFindings{
			RiskScore:  8,
			Confidence: 0.9,
			RedFlags: []core.IntentRedFlag{
				{Label: "verification lure", Severity: core.SeverityHigh, Evidence: "Verify your identity"},
				{Label: "invented attachment", Severity: core.SeverityHigh, Evidence: "open the invoice.zip attachment"},
			},
			Reasoning: "credential phish",
		})),
	})

	require.Len(t, verdict.RedFlags, 1)
	assert.Equal(t, "verification lure", verdict.RedFlags[0].Label)
	assert.Equal(t, core.SourceModel, verdict.RedFlags[0].Source)
	assert.Contains(t, verdict.Reasoning, "discarded")
	// Half the model findings were hallucinated, so confidence takes a hit.
	assert.Less(t, verdict.Confidence, 0.9*0.7+0.3)
}

func TestBorderlineOnDisagreement(t *testing.T) {
	r := New(nil)
	email := phishEmail()

	verdict := r.Reconcile(Input{
		Email: email,
		Heuristics: &heuristics.Result{
			Flags: []core.RedFlag{
				{Label: "generic greeting", Severity: core.SeverityLow, Source: core.SourceHeuristic},
			},
			Score: 2,
		},
		Phases: append(advisoryResults(), intentResult(&core.IntentFindings{
			RiskScore:  8,
			Confidence: 0.8,
			RedFlags: []core.IntentRedFlag{
				{Label: "refund scam wording", Severity: core.SeverityHigh, Evidence: "your refund is waiting"},
			},
		})),
	})

	assert.False(t, verdict.UsedFallback)
	assert.Equal(t, ReasonBorderline, verdict.DegradationReason)
	assert.Contains(t, verdict.Reasoning, "disagree")
}

func TestAgreementSuppressesBorderline(t *testing.T) {
	r := New(nil)
	email := phishEmail()

	verdict := r.Reconcile(Input{
		Email: email,
		Heuristics: &heuristics.Result{
			Flags: []core.RedFlag{
				{Label: "requests sensitive information", Severity: core.SeverityHigh, Source: core.SourceHeuristic},
			},
			Score: 4,
		},
		Phases: append(advisoryResults(), intentResult(&core.IntentFindings{
			RiskScore:  9,
			Confidence: 0.85,
			RedFlags: []core.IntentRedFlag{
				{Label: "requests sensitive information", Severity: core.SeverityHigh, Evidence: "verify your identity and password"},
			},
		})),
	})

	assert.Empty(t, verdict.DegradationReason)
}

func TestOmittedPhasesReduceConfidence(t *testing.T) {
	r := New(nil)
	email := phishEmail()
	intent := &core.IntentFindings{RiskScore: 8, Confidence: 0.8, Reasoning: "phish"}

	full := r.Reconcile(Input{
		Email:      email,
		Heuristics: &heuristics.Result{Score: 1},
		Phases:     append(advisoryResults(), intentResult(intent)),
	})
	partial := r.Reconcile(Input{
		Email:      email,
		Heuristics: &heuristics.Result{Score: 1},
		Phases: []core.PhaseResult{
			{Name: core.PhaseStructural, Valid: false},
			{Name: core.PhaseContent, Valid: false},
			intentResult(intent),
		},
	})

	assert.Less(t, partial.Confidence, full.Confidence)
	assert.Contains(t, partial.Reasoning, "did not complete")
	assert.False(t, partial.UsedFallback)
}

func TestGroundingIsCaseAndWhitespaceInsensitive(t *testing.T) {
	email := &core.CanonicalEmail{
		PlainBody: "Please   VERIFY\nyour identity today.",
	}
	grounded, dropped := groundFlags(email, []core.IntentRedFlag{
		{Label: "lure", Severity: core.SeverityHigh, Evidence: "verify your identity"},
		{Label: "empty evidence", Severity: core.SeverityLow, Evidence: ""},
	})

	require.Len(t, grounded, 1)
	assert.Len(t, dropped, 1)
}

func TestAgreementLevel(t *testing.T) {
	model := []core.RedFlag{
		{Label: "credential request"},
		{Label: "suspicious link"},
	}
	heuristic := []core.RedFlag{
		{Label: "requests sensitive information (password)"},
		{Label: "link text does not match destination"},
	}

	// "password" folds to credential and "link" matches directly.
	assert.InDelta(t, 1.0, agreementLevel(model, heuristic), 0.01)
	assert.Equal(t, 0.0, agreementLevel(nil, heuristic))
	assert.Equal(t, 0.0, agreementLevel(model, nil))
}
