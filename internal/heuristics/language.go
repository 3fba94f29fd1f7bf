package heuristics

import (
	"fmt"
	"strings"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// UrgencyStrategy flags pressure language pushing the recipient to act
// before thinking.
type UrgencyStrategy struct{}

var urgencyPhrases = []string{
	"urgent",
	"immediately",
	"act now",
	"right away",
	"expires today",
	"within 24 hours",
	"final notice",
	"last warning",
	"account suspended",
	"account will be closed",
	"verify your account",
	"unusual activity",
	"security alert",
	"action required",
}

func (s *UrgencyStrategy) Name() string { return "urgency-language" }

func (s *UrgencyStrategy) Detect(email *core.CanonicalEmail) []core.RedFlag {
	text := strings.ToLower(email.Header("subject") + "\n" + email.PlainBody)

	var hits []string
	for _, phrase := range urgencyPhrases {
		if strings.Contains(text, phrase) {
			hits = append(hits, phrase)
		}
	}
	if len(hits) == 0 {
		return nil
	}

	severity := core.SeverityLow
	if len(hits) >= 3 {
		severity = core.SeverityMedium
	}
	return []core.RedFlag{flag(
		"urgency language",
		severity,
		fmt.Sprintf("pressure phrasing found: %s", strings.Join(hits, ", ")),
	)}
}

// CredentialRequestStrategy flags requests for passwords, payment details,
// or other sensitive information.
type CredentialRequestStrategy struct{}

var sensitiveRequests = []string{
	"password",
	"passcode",
	"social security",
	"ssn",
	"credit card",
	"card number",
	"cvv",
	"bank account",
	"account number",
	"routing number",
	"date of birth",
	"confirm your identity",
	"verify your identity",
	"login credentials",
	"wire transfer",
	"gift card",
}

func (s *CredentialRequestStrategy) Name() string { return "credential-request" }

func (s *CredentialRequestStrategy) Detect(email *core.CanonicalEmail) []core.RedFlag {
	text := strings.ToLower(email.Header("subject") + "\n" + email.PlainBody)

	var hits []string
	for _, term := range sensitiveRequests {
		if strings.Contains(text, term) {
			hits = append(hits, term)
		}
	}
	if len(hits) == 0 {
		return nil
	}

	return []core.RedFlag{flag(
		"requests sensitive information",
		core.SeverityHigh,
		fmt.Sprintf("asks for: %s", strings.Join(hits, ", ")),
	)}
}

// GenericGreetingStrategy flags impersonal salutations that legitimate
// senders who know the recipient rarely use.
type GenericGreetingStrategy struct{}

var genericGreetings = []string{
	"dear customer",
	"dear user",
	"dear member",
	"dear account holder",
	"dear sir/madam",
	"dear valued customer",
	"valued customer",
}

func (s *GenericGreetingStrategy) Name() string { return "generic-greeting" }

func (s *GenericGreetingStrategy) Detect(email *core.CanonicalEmail) []core.RedFlag {
	text := strings.ToLower(email.PlainBody)
	for _, greeting := range genericGreetings {
		if strings.Contains(text, greeting) {
			return []core.RedFlag{flag(
				"generic greeting",
				core.SeverityLow,
				fmt.Sprintf("impersonal salutation %q", greeting),
			)}
		}
	}
	return nil
}
