package heuristics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/trustlist"
)

func emailWith(headers map[string]string, body string, urls ...core.URLRef) *core.CanonicalEmail {
	return &core.CanonicalEmail{
		Headers:      headers,
		PlainBody:    body,
		URLs:         urls,
		SourceFormat: core.SourcePastedText,
	}
}

func labels(flags []core.RedFlag) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = f.Label
	}
	return out
}

func TestUrgencyStrategy(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		subject  string
		want     int
		severity core.Severity
	}{
		{
			name: "no urgency",
			body: "Attached is the agenda for Thursday.",
			want: 0,
		},
		{
			name:     "single phrase is low severity",
			body:     "Please respond immediately.",
			want:     1,
			severity: core.SeverityLow,
		},
		{
			name:     "stacked phrases escalate to medium",
			subject:  "URGENT: account suspended",
			body:     "Act now or your account will be closed. This is the final notice.",
			want:     1,
			severity: core.SeverityMedium,
		},
	}

	s := &UrgencyStrategy{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := emailWith(map[string]string{"subject": tt.subject}, tt.body)
			flags := s.Detect(email)
			require.Len(t, flags, tt.want)
			if tt.want > 0 {
				assert.Equal(t, tt.severity, flags[0].Severity)
				assert.Equal(t, core.SourceHeuristic, flags[0].Source)
			}
		})
	}
}

func TestCredentialRequestStrategy(t *testing.T) {
	s := &CredentialRequestStrategy{}

	flags := s.Detect(emailWith(nil, "Please confirm your password and credit card number."))
	require.Len(t, flags, 1)
	assert.Equal(t, core.SeverityHigh, flags[0].Severity)
	assert.Contains(t, flags[0].Explanation, "password")

	assert.Empty(t, s.Detect(emailWith(nil, "See you at the standup tomorrow.")))
}

func TestLinkMismatchStrategy(t *testing.T) {
	s := &LinkMismatchStrategy{}

	tests := []struct {
		name string
		url  core.URLRef
		want int
	}{
		{
			name: "display text names a different domain",
			url:  core.URLRef{Target: "http://evil.test/login", DisplayText: "paypal.com", Domain: "evil.test"},
			want: 1,
		},
		{
			name: "matching display text",
			url:  core.URLRef{Target: "https://paypal.com/help", DisplayText: "paypal.com", Domain: "paypal.com"},
			want: 0,
		},
		{
			name: "subdomain of displayed domain",
			url:  core.URLRef{Target: "https://www.paypal.com", DisplayText: "paypal.com", Domain: "www.paypal.com"},
			want: 0,
		},
		{
			name: "plain words as display text",
			url:  core.URLRef{Target: "http://evil.test", DisplayText: "click here", Domain: "evil.test"},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := s.Detect(emailWith(nil, "", tt.url))
			assert.Len(t, flags, tt.want)
		})
	}
}

func TestSuspiciousURLStrategy(t *testing.T) {
	s := &SuspiciousURLStrategy{}

	tests := []struct {
		name     string
		url      core.URLRef
		label    string
		severity core.Severity
	}{
		{
			name:     "raw IP host",
			url:      core.URLRef{Target: "http://192.168.10.5/login", Domain: "192.168.10.5"},
			label:    "link uses raw IP address",
			severity: core.SeverityHigh,
		},
		{
			name:     "url shortener",
			url:      core.URLRef{Target: "https://bit.ly/3xy", Domain: "bit.ly"},
			label:    "shortened link hides destination",
			severity: core.SeverityMedium,
		},
		{
			name:     "throwaway tld",
			url:      core.URLRef{Target: "http://login-verify.tk", Domain: "login-verify.tk"},
			label:    "link on low-reputation domain",
			severity: core.SeverityMedium,
		},
		{
			name:     "credentials in url",
			url:      core.URLRef{Target: "http://paypal.com@evil.test/", Domain: "evil.test"},
			label:    "link embeds credentials",
			severity: core.SeverityHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := s.Detect(emailWith(nil, "", tt.url))
			require.NotEmpty(t, flags)
			assert.Equal(t, tt.label, flags[0].Label)
			assert.Equal(t, tt.severity, flags[0].Severity)
		})
	}

	t.Run("clean url", func(t *testing.T) {
		flags := s.Detect(emailWith(nil, "", core.URLRef{Target: "https://example.com", Domain: "example.com"}))
		assert.Empty(t, flags)
	})
}

func TestReplyToMismatchStrategy(t *testing.T) {
	s := &ReplyToMismatchStrategy{}

	flags := s.Detect(emailWith(map[string]string{
		"from":     "Support <support@paypal.com>",
		"reply-to": "collect@evil.test",
	}, ""))
	require.Len(t, flags, 1)
	assert.Equal(t, core.SeverityMedium, flags[0].Severity)

	assert.Empty(t, s.Detect(emailWith(map[string]string{
		"from":     "support@paypal.com",
		"reply-to": "help@paypal.com",
	}, "")))

	assert.Empty(t, s.Detect(emailWith(map[string]string{
		"from": "support@paypal.com",
	}, "")))
}

func TestLookalikeDomainStrategy(t *testing.T) {
	s := &LookalikeDomainStrategy{}

	tests := []struct {
		name string
		from string
		want bool
	}{
		{
			name: "single character substitution",
			from: "billing@paypa1.com",
			want: true,
		},
		{
			name: "brand embedded in longer domain",
			from: "billing@paypal-secure.com",
			want: true,
		},
		{
			name: "the real brand",
			from: "service@paypal.com",
			want: false,
		},
		{
			name: "brand subdomain",
			from: "service@mail.paypal.com",
			want: false,
		},
		{
			name: "unrelated domain",
			from: "alice@example.org",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := s.Detect(emailWith(map[string]string{"from": tt.from}, ""))
			if tt.want {
				require.NotEmpty(t, flags)
				assert.Equal(t, core.SeverityHigh, flags[0].Severity)
			} else {
				assert.Empty(t, flags)
			}
		})
	}
}

func TestHeaderAnomalyStrategy(t *testing.T) {
	s := &HeaderAnomalyStrategy{}

	email := emailWith(nil, "body")
	email.Completeness = []core.CompletenessFlag{
		core.FlagMissingFrom,
		core.FlagMissingSubject,
	}
	flags := s.Detect(email)
	require.Len(t, flags, 1)
	assert.Equal(t, core.SeverityMedium, flags[0].Severity)

	assert.Empty(t, s.Detect(emailWith(nil, "body")))
}

func TestScore(t *testing.T) {
	assert.Equal(t, 1, Score(nil))

	flags := []core.RedFlag{
		{Severity: core.SeverityHigh},
		{Severity: core.SeverityMedium},
		{Severity: core.SeverityLow},
	}
	assert.Equal(t, 7, Score(flags))

	many := make([]core.RedFlag, 6)
	for i := range many {
		many[i] = core.RedFlag{Severity: core.SeverityHigh}
	}
	assert.Equal(t, 10, Score(many))
}

func TestScorerAssessesSenderAndLinkDomains(t *testing.T) {
	list := trustlist.New(trustlist.DefaultDeltas(), nil)
	scorer := NewScorer(list, nil)

	email := emailWith(map[string]string{
		"from":    "refunds@irs.gov",
		"subject": "refund status",
	}, "Track your refund below.",
		core.URLRef{Target: "https://www.irs.gov/refunds", Domain: "www.irs.gov"},
		core.URLRef{Target: "https://mit.edu/seminar", Domain: "mit.edu"},
		core.URLRef{Target: "http://tracker.example.net/r", Domain: "tracker.example.net"})

	result, err := scorer.Assess(context.Background(), email)
	require.NoError(t, err)

	// One assessment per distinct domain: sender and www.irs.gov collapse.
	require.Len(t, result.Trust, 3)
	assert.Equal(t, "irs.gov", result.Trust[0].Domain)
	assert.Equal(t, core.DomainGovernment, result.Trust[0].Category)
	assert.Equal(t, "mit.edu", result.Trust[1].Domain)
	assert.Equal(t, core.DomainEducation, result.Trust[1].Category)
	assert.Equal(t, core.DomainUnknown, result.Trust[2].Category)
	assert.Equal(t, 0, result.Trust[2].TrustDelta)
}

func TestScorerDeterministicOrder(t *testing.T) {
	scorer := NewScorer(nil, nil)
	email := emailWith(map[string]string{
		"from":     "PayPal <billing@paypa1.com>",
		"reply-to": "collect@evil.test",
		"subject":  "URGENT: verify your account immediately",
	}, "Dear customer, confirm your password at the link below.",
		core.URLRef{Target: "http://bit.ly/x", DisplayText: "paypal.com", Domain: "bit.ly"})

	first, err := scorer.Assess(context.Background(), email)
	require.NoError(t, err)
	require.NotEmpty(t, first.Flags)

	for i := 0; i < 5; i++ {
		again, err := scorer.Assess(context.Background(), email)
		require.NoError(t, err)
		assert.Equal(t, labels(first.Flags), labels(again.Flags))
		assert.Equal(t, first.Score, again.Score)
	}
}
