// Package heuristics runs deterministic phishing checks that need no model
// call. The checks are the fallback analysis when inference is unavailable
// and the cross-check against model output when it is not.
package heuristics

import (
	"github.com/mikey/llm-phishing-detector/internal/core"
)

// Strategy is a single deterministic check over a canonical email.
type Strategy interface {
	Name() string
	Detect(email *core.CanonicalEmail) []core.RedFlag
}

// flag builds a heuristic-sourced red flag.
func flag(label string, severity core.Severity, explanation string) core.RedFlag {
	return core.RedFlag{
		Label:       label,
		Severity:    severity,
		Source:      core.SourceHeuristic,
		Explanation: explanation,
	}
}
