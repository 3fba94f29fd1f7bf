package heuristics

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/normalize"
	"github.com/mikey/llm-phishing-detector/internal/trustlist"
)

// Result is the full deterministic assessment of one email.
type Result struct {
	Flags []core.RedFlag
	Trust []core.TrustAssessment
	Score int
}

// Scorer runs every strategy over an email. Strategies execute
// concurrently but results are assembled in registration order, so the
// same email always produces the same flag sequence.
type Scorer struct {
	strategies []Strategy
	trust      *trustlist.List
	logger     *zap.Logger
}

// NewScorer wires the default strategy set.
func NewScorer(trust *trustlist.List, logger *zap.Logger) *Scorer {
	return &Scorer{
		strategies: []Strategy{
			&UrgencyStrategy{},
			&CredentialRequestStrategy{},
			&GenericGreetingStrategy{},
			&LinkMismatchStrategy{},
			&SuspiciousURLStrategy{},
			&ReplyToMismatchStrategy{},
			&LookalikeDomainStrategy{},
			&HeaderAnomalyStrategy{},
		},
		trust:  trust,
		logger: logger,
	}
}

// Assess runs all strategies and resolves sender trust.
func (s *Scorer) Assess(ctx context.Context, email *core.CanonicalEmail) (*Result, error) {
	perStrategy := make([][]core.RedFlag, len(s.strategies))

	g, _ := errgroup.WithContext(ctx)
	for i, strategy := range s.strategies {
		i, strategy := i, strategy
		g.Go(func() error {
			perStrategy[i] = strategy.Detect(email)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{}
	for i, flags := range perStrategy {
		// Lookalike results come from map iteration, keep them stable.
		sort.SliceStable(flags, func(a, b int) bool {
			if flags[a].Label != flags[b].Label {
				return flags[a].Label < flags[b].Label
			}
			return flags[a].Explanation < flags[b].Explanation
		})
		result.Flags = append(result.Flags, flags...)
		if s.logger != nil && len(flags) > 0 {
			s.logger.Debug("heuristic matched",
				zap.String("strategy", s.strategies[i].Name()),
				zap.Int("flags", len(flags)))
		}
	}

	if s.trust != nil {
		// One assessment per distinct domain: the sender first, then link
		// targets in extraction order.
		seen := make(map[string]bool)
		if d := normalize.AddressDomain(email.Header("from")); d != "" {
			seen[d] = true
			result.Trust = append(result.Trust, s.trust.Assess(d))
		}
		for _, u := range email.URLs {
			d := strings.ToLower(strings.TrimPrefix(u.Domain, "www."))
			if d == "" || seen[d] {
				continue
			}
			seen[d] = true
			result.Trust = append(result.Trust, s.trust.Assess(d))
		}
	}

	result.Score = Score(result.Flags)
	return result, nil
}

// Score converts red flags into a 1 to 10 risk score. Each high-severity
// flag adds 3 points, medium adds 2, low adds 1, on a base of 1.
func Score(flags []core.RedFlag) int {
	score := 1
	for _, f := range flags {
		switch f.Severity {
		case core.SeverityHigh:
			score += 3
		case core.SeverityMedium:
			score += 2
		case core.SeverityLow:
			score += 1
		}
	}
	return core.ClampScore(score)
}
