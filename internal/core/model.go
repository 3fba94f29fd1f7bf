package core

import (
	"time"
)

// SourceFormat identifies how the raw email input was supplied.
type SourceFormat string

const (
	SourcePastedText    SourceFormat = "pasted-text"
	SourceContainerFile SourceFormat = "container-file"
)

// CompletenessFlag marks an expected header or part that was missing or
// ambiguous in the raw input. The normalizer records these instead of failing.
type CompletenessFlag string

const (
	FlagMissingFrom      CompletenessFlag = "missing-from"
	FlagMissingSubject   CompletenessFlag = "missing-subject"
	FlagMissingDate      CompletenessFlag = "missing-date"
	FlagMissingTo        CompletenessFlag = "missing-to"
	FlagNoPlainBody      CompletenessFlag = "no-plain-body"
	FlagAmbiguousCharset CompletenessFlag = "ambiguous-charset"
)

// URLRef is one extracted link target with the text it was displayed under.
// For bare URLs in plain text, DisplayText equals Target.
type URLRef struct {
	Target      string
	DisplayText string
	Domain      string
}

// CanonicalEmail is the normalized, format-independent representation of an
// email. It is immutable once constructed; all analysis stages read it and
// none mutate it.
type CanonicalEmail struct {
	// Headers maps lowercased header names to values. Duplicate headers keep
	// the last value seen.
	Headers map[string]string

	PlainBody string
	HTMLBody  string

	// URLs preserves extraction order.
	URLs []URLRef

	SourceFormat SourceFormat

	// Completeness lists the expected headers/parts not found, sorted.
	Completeness []CompletenessFlag
}

// Header returns the value for a header name, case-insensitively.
func (e *CanonicalEmail) Header(name string) string {
	b := []byte(name)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return e.Headers[string(b)]
}

// HasFlag reports whether a completeness flag was recorded.
func (e *CanonicalEmail) HasFlag(flag CompletenessFlag) bool {
	for _, f := range e.Completeness {
		if f == flag {
			return true
		}
	}
	return false
}

// DomainCategory buckets a domain by institutional trust.
type DomainCategory string

const (
	DomainGovernment     DomainCategory = "government"
	DomainEducation      DomainCategory = "education"
	DomainKnownCorporate DomainCategory = "known-corporate"
	DomainUnknown        DomainCategory = "unknown"
)

// TrustAssessment is the trust weighting for one distinct sender or link
// domain. TrustDelta is a signed adjustment applied additively to the risk
// score by the reconciler; it never overrides the score on its own.
type TrustAssessment struct {
	Domain     string
	TrustDelta int
	Category   DomainCategory
}

// Severity grades a red flag.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// FlagSource records which analyzer produced a red flag.
type FlagSource string

const (
	SourceModel     FlagSource = "model"
	SourceHeuristic FlagSource = "heuristic"
)

// RedFlag is one explained phishing indicator. Explanation must cite content
// actually present in the CanonicalEmail; model-sourced flags that fail that
// grounding check are dropped before they reach a Verdict.
type RedFlag struct {
	Label       string
	Severity    Severity
	Source      FlagSource
	Explanation string
}

// PhaseName identifies one bounded analysis phase.
type PhaseName string

const (
	PhaseStructural PhaseName = "structural"
	PhaseContent    PhaseName = "content"
	PhaseIntent     PhaseName = "intent"
)

// StructuralFindings is the parsed output of the structural phase.
type StructuralFindings struct {
	HeaderFindings []string `json:"header_findings"`
	MissingHeaders []string `json:"missing_headers"`
	AuthConcerns   []string `json:"authentication_concerns"`
	Summary        string   `json:"summary"`
}

// ContentFindings is the parsed output of the content phase.
type ContentFindings struct {
	SuspiciousURLs   []string `json:"suspicious_urls"`
	UrgencyPhrases   []string `json:"urgency_phrases"`
	RequestedActions []string `json:"requested_actions"`
	Summary          string   `json:"summary"`
}

// IntentRedFlag is one red-flag candidate from the intent phase, with the
// verbatim evidence the model claims to have seen.
type IntentRedFlag struct {
	Label    string   `json:"label"`
	Severity Severity `json:"severity"`
	Evidence string   `json:"evidence"`
}

// IntentFindings is the parsed output of the intent phase: the model's
// candidate verdict before reconciliation.
type IntentFindings struct {
	RiskScore  int             `json:"risk_score"`
	Confidence float64         `json:"confidence"`
	RedFlags   []IntentRedFlag `json:"red_flags"`
	Reasoning  string          `json:"reasoning"`
}

// PhaseResult is the outcome of one phase attempt. At most one of the typed
// findings fields is set, matching Name; all are nil when parsing failed.
// PhaseResults live only for the duration of one analysis run.
type PhaseResult struct {
	Name        PhaseName
	RawResponse string
	Valid       bool

	Structural *StructuralFindings
	Content    *ContentFindings
	Intent     *IntentFindings
}

// RiskTier is the coarse classification derived from the score.
type RiskTier string

const (
	TierLow    RiskTier = "low"
	TierMedium RiskTier = "medium"
	TierHigh   RiskTier = "high"
)

// Tier boundaries: 1-3 low, 4-6 medium, 7-10 high.
const (
	MediumTierFloor = 4
	HighTierFloor   = 7
)

// TierFor maps a score in [1,10] to its risk tier. It must remain a pure
// function of the score.
func TierFor(score int) RiskTier {
	switch {
	case score >= HighTierFloor:
		return TierHigh
	case score >= MediumTierFloor:
		return TierMedium
	default:
		return TierLow
	}
}

// ClampScore forces a score into the valid [1,10] range.
func ClampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// RecommendedAction is the suggested handling for an analyzed email.
type RecommendedAction string

const (
	ActionIgnore  RecommendedAction = "ignore"
	ActionCaution RecommendedAction = "caution"
	ActionBlock   RecommendedAction = "block"
)

// RecommendationFor derives the handling advice from tier and flag severity.
func RecommendationFor(tier RiskTier, flags []RedFlag) RecommendedAction {
	highCount := 0
	for _, f := range flags {
		if f.Severity == SeverityHigh {
			highCount++
		}
	}
	switch {
	case tier == TierHigh || highCount > 0:
		return ActionBlock
	case tier == TierMedium:
		return ActionCaution
	default:
		return ActionIgnore
	}
}

// Verdict is the single result of one analysis invocation. Immutable once
// returned.
type Verdict struct {
	AnalysisID string

	Score      int
	Tier       RiskTier
	Confidence float64

	RedFlags []RedFlag

	// UsedFallback is true when the model pipeline was unavailable and the
	// verdict derives entirely from heuristics. It implies every red flag
	// has Source == SourceHeuristic.
	UsedFallback bool

	// DegradationReason explains reduced confidence or fallback; empty when
	// the full pipeline ran cleanly.
	DegradationReason string

	Recommendation RecommendedAction
	Reasoning      string

	ModelUsed  string
	AnalyzedAt time.Time
}

// CacheEntry is the persisted form of a verdict in the cache backends. Only
// the summary fields are stored; phase results are never persisted.
type CacheEntry struct {
	Fingerprint string
	Score       int
	Tier        RiskTier
	Confidence  float64
	LastSeen    time.Time
	ExpiresAt   time.Time
}
