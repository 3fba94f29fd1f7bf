// Package reconcile merges model findings, heuristic findings, and sender
// trust into one final verdict. Reconcile is total: any combination of
// inputs, including a fully failed model run, still yields a verdict.
package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/heuristics"
	"github.com/mikey/llm-phishing-detector/internal/resilience"
)

// FallbackConfidenceCeiling caps confidence whenever the verdict rests on
// heuristics alone.
const FallbackConfidenceCeiling = 0.4

// BorderlineAgreement is the agreement level below which model and
// heuristic findings are considered in conflict.
const BorderlineAgreement = 0.3

// ReasonBorderline marks a verdict whose model and heuristic findings
// disagree enough that a human should look.
const ReasonBorderline = "borderline"

// Input carries everything known about one analysis.
type Input struct {
	Email      *core.CanonicalEmail
	Heuristics *heuristics.Result
	Phases     []core.PhaseResult
	PhaseErr   error
	ModelName  string
}

// Reconciler builds verdicts.
type Reconciler struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Reconcile produces the final verdict. It never returns an error: a
// failed model run degrades to the heuristic fallback path instead.
func (r *Reconciler) Reconcile(in Input) *core.Verdict {
	verdict := &core.Verdict{
		AnalysisID: uuid.NewString(),
		ModelUsed:  in.ModelName,
		AnalyzedAt: time.Now().UTC(),
	}

	intent := validIntent(in.Phases)
	if intent == nil {
		r.fallback(in, verdict)
	} else {
		r.fromModel(in, intent, verdict)
	}

	verdict.Tier = core.TierFor(verdict.Score)
	verdict.Recommendation = core.RecommendationFor(verdict.Tier, verdict.RedFlags)
	return verdict
}

// fallback rates the email on heuristics alone when the intent phase
// never produced a usable answer.
func (r *Reconciler) fallback(in Input, verdict *core.Verdict) {
	verdict.UsedFallback = true
	verdict.Score = heuristicScore(in)
	verdict.RedFlags = heuristicFlags(in)

	confidence := 0.2 + 0.05*float64(len(verdict.RedFlags))
	if confidence > FallbackConfidenceCeiling {
		confidence = FallbackConfidenceCeiling
	}
	verdict.Confidence = confidence

	var b strings.Builder
	if in.PhaseErr != nil {
		kind := resilience.Classify(in.PhaseErr)
		if kind == "" {
			kind = resilience.ModelUnavailable
		}
		verdict.DegradationReason = string(kind)

		b.WriteString("Model analysis was unavailable, so this verdict rests on deterministic checks only. ")
		if g := resilience.Guidance(kind); g != "" {
			b.WriteString(g)
			b.WriteString(". ")
		}
	} else {
		// The intent phase was switched off rather than lost, so nothing
		// degraded and DegradationReason stays empty.
		b.WriteString("Model analysis was not run, so this verdict rests on deterministic checks only. ")
	}
	b.WriteString(flagSummary(verdict.RedFlags))
	verdict.Reasoning = strings.TrimSpace(b.String())

	if r.logger != nil && in.PhaseErr != nil {
		r.logger.Warn("verdict degraded to heuristics",
			zap.String("reason", verdict.DegradationReason),
			zap.Int("score", verdict.Score))
	}
}

// fromModel starts from the intent phase score, grounds the model's red
// flags against the email text, applies domain trust, and cross-checks
// against the heuristics.
func (r *Reconciler) fromModel(in Input, intent *core.IntentFindings, verdict *core.Verdict) {
	grounded, dropped := groundFlags(in.Email, intent.RedFlags)
	hFlags := heuristicFlags(in)

	verdict.RedFlags = append(grounded, hFlags...)

	score := intent.RiskScore
	for _, trust := range trustOf(in) {
		score += trust.TrustDelta
	}
	score = core.ClampScore(score)

	// Hard heuristic evidence keeps the verdict out of the low tiers no
	// matter how trusted the claimed sender looks.
	if hasHighSeverity(hFlags) && score < core.HighTierFloor {
		score = core.HighTierFloor
	}
	verdict.Score = score

	agreement := agreementLevel(grounded, hFlags)
	omitted := omittedPhases(in.Phases)
	dropRate := 0.0
	if total := len(grounded) + len(dropped); total > 0 {
		dropRate = float64(len(dropped)) / float64(total)
	}

	confidence := intent.Confidence*0.7 + agreement*0.3
	confidence -= 0.1 * float64(len(omitted))
	confidence *= 1 - 0.5*dropRate
	verdict.Confidence = clamp01(confidence)

	if len(grounded) > 0 && len(hFlags) > 0 && agreement < BorderlineAgreement {
		verdict.DegradationReason = ReasonBorderline
	}

	var b strings.Builder
	if intent.Reasoning != "" {
		b.WriteString(intent.Reasoning)
		if !strings.HasSuffix(intent.Reasoning, ".") {
			b.WriteString(".")
		}
		b.WriteString(" ")
	}
	for _, trust := range trustOf(in) {
		if trust.TrustDelta != 0 {
			fmt.Fprintf(&b, "Domain %s is a trusted %s domain and lowered the score by %d. ",
				trust.Domain, trust.Category, -trust.TrustDelta)
		}
	}
	if len(dropped) > 0 {
		fmt.Fprintf(&b, "%d model finding(s) were discarded because their evidence does not appear in the email. ", len(dropped))
	}
	for _, phase := range omitted {
		fmt.Fprintf(&b, "The %s phase did not complete and its findings are missing. ", phase)
	}
	if verdict.DegradationReason == ReasonBorderline {
		b.WriteString("Model and deterministic findings disagree; treat this verdict with caution. ")
	}
	verdict.Reasoning = strings.TrimSpace(b.String())
}

func validIntent(results []core.PhaseResult) *core.IntentFindings {
	for _, pr := range results {
		if pr.Name == core.PhaseIntent && pr.Valid && pr.Intent != nil {
			return pr.Intent
		}
	}
	return nil
}

func omittedPhases(results []core.PhaseResult) []core.PhaseName {
	var omitted []core.PhaseName
	for _, name := range []core.PhaseName{core.PhaseStructural, core.PhaseContent} {
		ok := false
		for _, pr := range results {
			if pr.Name == name && pr.Valid {
				ok = true
				break
			}
		}
		if !ok {
			omitted = append(omitted, name)
		}
	}
	return omitted
}

func heuristicScore(in Input) int {
	if in.Heuristics == nil {
		return 1
	}
	return in.Heuristics.Score
}

func heuristicFlags(in Input) []core.RedFlag {
	if in.Heuristics == nil {
		return nil
	}
	return in.Heuristics.Flags
}

func trustOf(in Input) []core.TrustAssessment {
	if in.Heuristics == nil {
		return nil
	}
	return in.Heuristics.Trust
}

func hasHighSeverity(flags []core.RedFlag) bool {
	for _, f := range flags {
		if f.Severity == core.SeverityHigh {
			return true
		}
	}
	return false
}

func flagSummary(flags []core.RedFlag) string {
	if len(flags) == 0 {
		return "No deterministic red flags were found."
	}
	labels := make([]string, len(flags))
	for i, f := range flags {
		labels[i] = f.Label
	}
	return fmt.Sprintf("Deterministic checks raised: %s.", strings.Join(labels, "; "))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
