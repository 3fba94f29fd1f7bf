package heuristics

import (
	"fmt"
	"strings"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// HeaderAnomalyStrategy flags structural gaps recorded during
// normalization, such as missing standard headers.
type HeaderAnomalyStrategy struct{}

func (s *HeaderAnomalyStrategy) Name() string { return "header-anomaly" }

func (s *HeaderAnomalyStrategy) Detect(email *core.CanonicalEmail) []core.RedFlag {
	var missing []string
	for _, check := range []struct {
		flag   core.CompletenessFlag
		header string
	}{
		{core.FlagMissingFrom, "From"},
		{core.FlagMissingSubject, "Subject"},
		{core.FlagMissingDate, "Date"},
		{core.FlagMissingTo, "To"},
	} {
		if email.HasFlag(check.flag) {
			missing = append(missing, check.header)
		}
	}

	var flags []core.RedFlag
	if len(missing) > 0 {
		severity := core.SeverityLow
		if len(missing) >= 2 {
			severity = core.SeverityMedium
		}
		flags = append(flags, flag(
			"missing standard headers",
			severity,
			fmt.Sprintf("no %s header", strings.Join(missing, ", ")),
		))
	}

	if email.HasFlag(core.FlagAmbiguousCharset) {
		flags = append(flags, flag(
			"ambiguous character encoding",
			core.SeverityLow,
			"declared charset could not be decoded",
		))
	}
	return flags
}
