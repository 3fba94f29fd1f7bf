package reconcile

import (
	"strings"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// groundFlags keeps only model red flags whose evidence actually appears
// in the email, discarding hallucinated findings. Matching is
// case-insensitive with whitespace collapsed.
func groundFlags(email *core.CanonicalEmail, flags []core.IntentRedFlag) (grounded []core.RedFlag, dropped []core.IntentRedFlag) {
	corpus := buildCorpus(email)
	for _, f := range flags {
		evidence := normalizeText(f.Evidence)
		if evidence == "" || !strings.Contains(corpus, evidence) {
			dropped = append(dropped, f)
			continue
		}
		grounded = append(grounded, core.RedFlag{
			Label:       f.Label,
			Severity:    f.Severity,
			Source:      core.SourceModel,
			Explanation: f.Evidence,
		})
	}
	return grounded, dropped
}

func buildCorpus(email *core.CanonicalEmail) string {
	var b strings.Builder
	for _, v := range email.Headers {
		b.WriteString(v)
		b.WriteString("\n")
	}
	b.WriteString(email.PlainBody)
	b.WriteString("\n")
	for _, u := range email.URLs {
		b.WriteString(u.Target)
		b.WriteString("\n")
		b.WriteString(u.DisplayText)
		b.WriteString("\n")
		b.WriteString(u.Domain)
		b.WriteString("\n")
	}
	return normalizeText(b.String())
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// agreementLevel measures how much the model's grounded flags and the
// deterministic flags describe the same problems, as a fraction of the
// larger set. Labels agree when they share a meaningful keyword after
// synonym folding.
func agreementLevel(model, heuristic []core.RedFlag) float64 {
	if len(model) == 0 || len(heuristic) == 0 {
		return 0
	}

	matches := 0
	for _, m := range model {
		mTokens := labelTokens(m.Label)
		for _, h := range heuristic {
			if overlap(mTokens, labelTokens(h.Label)) {
				matches++
				break
			}
		}
	}

	denom := len(model)
	if len(heuristic) > denom {
		denom = len(heuristic)
	}
	return float64(matches) / float64(denom)
}

// synonyms folds common phrasing variants onto one token.
var synonyms = map[string]string{
	"password":    "credential",
	"credentials": "credential",
	"login":       "credential",
	"account":     "credential",
	"url":         "link",
	"urls":        "link",
	"links":       "link",
	"hyperlink":   "link",
	"urgent":      "urgency",
	"pressure":    "urgency",
	"deadline":    "urgency",
	"spoofed":     "domain",
	"spoofing":    "domain",
	"impersonate": "domain",
	"lookalike":   "domain",
	"typosquat":   "domain",
	"sender":      "domain",
	"greeting":    "greeting",
	"salutation":  "greeting",
	"header":      "header",
	"headers":     "header",
}

func labelTokens(label string) map[string]bool {
	tokens := map[string]bool{}
	for _, word := range strings.Fields(strings.ToLower(label)) {
		word = strings.Trim(word, ".,;:()\"'")
		if folded, ok := synonyms[word]; ok {
			word = folded
		}
		if len(word) >= 4 {
			tokens[word] = true
		}
	}
	return tokens
}

func overlap(a, b map[string]bool) bool {
	for t := range a {
		if b[t] {
			return true
		}
	}
	return false
}
