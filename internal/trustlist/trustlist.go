// Package trustlist resolves sender and link domains against a flat file
// of trusted domains and assigns trust deltas that lower the final risk
// score.
package trustlist

import (
	"bufio"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// Deltas holds the score adjustment per domain category. Deltas are
// negative: a trusted sender lowers the risk score.
type Deltas struct {
	Government     int
	Education      int
	KnownCorporate int
}

// DefaultDeltas mirrors the shipped policy.
func DefaultDeltas() Deltas {
	return Deltas{
		Government:     -4,
		Education:      -3,
		KnownCorporate: -2,
	}
}

type snapshot struct {
	domains map[string]core.DomainCategory
}

// List is an in-memory view of the trusted-domain file. Lookups read an
// atomic snapshot so a concurrent reload never blocks analysis.
type List struct {
	deltas Deltas
	snap   atomic.Pointer[snapshot]
	logger *zap.Logger
}

// New builds an empty list with the given delta policy.
func New(deltas Deltas, logger *zap.Logger) *List {
	l := &List{deltas: deltas, logger: logger}
	l.snap.Store(&snapshot{domains: map[string]core.DomainCategory{}})
	return l
}

// LoadFile replaces the current snapshot with the file contents. The file
// holds one domain per line; blank lines and '#' comments are skipped. A
// line may carry an explicit category after whitespace, otherwise the
// category is inferred from the public suffix.
func (l *List) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "failed to open trusted domains file %s", path)
	}
	defer f.Close()

	domains := make(map[string]core.DomainCategory)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		domain := strings.ToLower(strings.TrimPrefix(fields[0], "."))
		category := inferCategory(domain)
		if len(fields) > 1 {
			if c, ok := parseCategory(fields[1]); ok {
				category = c
			}
		}
		domains[domain] = category
	}
	if err := scanner.Err(); err != nil {
		return eris.Wrapf(err, "failed to read trusted domains file %s", path)
	}

	l.snap.Store(&snapshot{domains: domains})
	if l.logger != nil {
		l.logger.Info("loaded trusted domains", zap.String("path", path), zap.Int("count", len(domains)))
	}
	return nil
}

// Assess resolves a sender domain to its trust category and delta using
// longest-suffix matching, so mail.irs.gov matches an irs.gov entry.
func (l *List) Assess(domain string) core.TrustAssessment {
	domain = strings.ToLower(strings.TrimSpace(domain))
	assessment := core.TrustAssessment{
		Domain:   domain,
		Category: core.DomainUnknown,
	}
	if domain == "" {
		return assessment
	}

	snap := l.snap.Load()

	// Walk label boundaries from the full domain down to shorter suffixes,
	// keeping the longest match.
	candidate := domain
	for {
		if category, ok := snap.domains[candidate]; ok {
			assessment.Category = category
			assessment.TrustDelta = l.deltaFor(category)
			return assessment
		}
		idx := strings.Index(candidate, ".")
		if idx < 0 {
			break
		}
		candidate = candidate[idx+1:]
	}

	// Government and education suffixes are trusted even without a file
	// entry.
	if category := inferCategory(domain); category == core.DomainGovernment || category == core.DomainEducation {
		assessment.Category = category
		assessment.TrustDelta = l.deltaFor(category)
	}
	return assessment
}

// Size returns the number of loaded entries.
func (l *List) Size() int {
	return len(l.snap.Load().domains)
}

func (l *List) deltaFor(category core.DomainCategory) int {
	switch category {
	case core.DomainGovernment:
		return l.deltas.Government
	case core.DomainEducation:
		return l.deltas.Education
	case core.DomainKnownCorporate:
		return l.deltas.KnownCorporate
	default:
		return 0
	}
}

func inferCategory(domain string) core.DomainCategory {
	switch {
	case strings.HasSuffix(domain, ".gov") || domain == "gov":
		return core.DomainGovernment
	case strings.HasSuffix(domain, ".edu") || domain == "edu":
		return core.DomainEducation
	default:
		return core.DomainKnownCorporate
	}
}

func parseCategory(s string) (core.DomainCategory, bool) {
	switch strings.ToLower(s) {
	case "government", "gov":
		return core.DomainGovernment, true
	case "education", "edu":
		return core.DomainEducation, true
	case "corporate", "known-corporate":
		return core.DomainKnownCorporate, true
	default:
		return "", false
	}
}
