package phases

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/resilience"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "clean object",
			raw:  `{"summary": "ok"}`,
			want: `{"summary": "ok"}`,
		},
		{
			name: "markdown fenced",
			raw:  "```json\n{\"summary\": \"ok\"}\n```",
			want: `{"summary": "ok"}`,
		},
		{
			name: "chatter around the object",
			raw:  `Sure! Here is my analysis: {"summary": "ok"} Hope that helps.`,
			want: `{"summary": "ok"}`,
		},
		{
			name:    "no object at all",
			raw:     "I cannot analyze this email.",
			wantErr: true,
		},
		{
			name:    "broken json between braces",
			raw:     `{"summary": "ok`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, resilience.MalformedResponse, resilience.Classify(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIntent(t *testing.T) {
	raw := `{
		"risk_score": 9,
		"confidence": 0.85,
		"red_flags": [
			{"label": "credential request", "severity": "high", "evidence": "verify your password"},
			{"label": "", "severity": "low", "evidence": "dropped"}
		],
		"reasoning": "classic credential phish"
	}`

	findings, err := parseIntent(raw)
	require.NoError(t, err)
	assert.Equal(t, 9, findings.RiskScore)
	assert.Equal(t, 0.85, findings.Confidence)
	require.Len(t, findings.RedFlags, 1)
	assert.Equal(t, core.SeverityHigh, findings.RedFlags[0].Severity)
	assert.Equal(t, "classic credential phish", findings.Reasoning)
}

func TestParseIntentClampsScore(t *testing.T) {
	findings, err := parseIntent(`{"risk_score": 42, "confidence": 1.5, "reasoning": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, 10, findings.RiskScore)
	assert.Equal(t, 1.0, findings.Confidence)
}

func TestParseIntentStringScore(t *testing.T) {
	findings, err := parseIntent(`{"risk_score": "8", "confidence": "0.7"}`)
	require.NoError(t, err)
	assert.Equal(t, 8, findings.RiskScore)
	assert.Equal(t, 0.7, findings.Confidence)
}

func TestParseIntentNonNumericScore(t *testing.T) {
	_, err := parseIntent(`{"risk_score": "high", "confidence": 0.5}`)
	require.Error(t, err)
	assert.Equal(t, resilience.MalformedResponse, resilience.Classify(err))
}

// fakeClient scripts responses per prompt call.
type fakeClient struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeClient) Generate(ctx context.Context, req core.GenerateRequest) (*core.GenerateResponse, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		return nil, errors.New("no scripted response")
	}
	return &core.GenerateResponse{Text: f.responses[i], Model: "fake"}, nil
}

func (f *fakeClient) Health(ctx context.Context) (*core.HealthStatus, error) {
	return &core.HealthStatus{Reachable: true, Models: []string{"fake"}}, nil
}

func (f *fakeClient) CheckModel(ctx context.Context) error { return nil }

func (f *fakeClient) ModelName() string { return "fake" }

func testRunner(client core.InferenceClient) *Runner {
	retry := resilience.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond}
	return NewRunner(client, nil, retry, DefaultConfig(), nil)
}

const structuralJSON = `{"header_findings": ["reply-to differs"], "missing_headers": [], "authentication_concerns": [], "summary": "header mismatch"}`
const contentJSON = `{"suspicious_urls": ["http://evil.test"], "urgency_phrases": ["act now"], "requested_actions": ["click link"], "summary": "pressure to click"}`
const intentJSON = `{"risk_score": 8, "confidence": 0.8, "red_flags": [{"label": "urgency", "severity": "medium", "evidence": "act now"}], "reasoning": "credential phish"}`

func sampleEmail() *core.CanonicalEmail {
	return &core.CanonicalEmail{
		Headers: map[string]string{
			"from":    "billing@evil.test",
			"subject": "act now",
		},
		PlainBody:    "act now and verify",
		SourceFormat: core.SourcePastedText,
	}
}

func TestRunAllPhasesSucceed(t *testing.T) {
	client := &fakeClient{responses: []string{structuralJSON, contentJSON, intentJSON}}

	results, err := testRunner(client).Run(context.Background(), sampleEmail())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Valid)
	assert.Equal(t, core.PhaseStructural, results[0].Name)
	assert.Equal(t, "header mismatch", results[0].Structural.Summary)

	assert.True(t, results[1].Valid)
	assert.Equal(t, "pressure to click", results[1].Content.Summary)

	assert.True(t, results[2].Valid)
	assert.Equal(t, 8, results[2].Intent.RiskScore)

	// Later prompts carry earlier summaries forward.
	assert.Contains(t, client.prompts[1], "header mismatch")
	assert.Contains(t, client.prompts[2], "header mismatch")
	assert.Contains(t, client.prompts[2], "pressure to click")
}

func TestRunAdvisoryPhaseFailureContinues(t *testing.T) {
	client := &fakeClient{
		responses: []string{"", contentJSON, intentJSON},
		errs:      []error{resilience.Faultf(resilience.TimeoutExceeded, "slow"), nil, nil},
	}

	results, err := testRunner(client).Run(context.Background(), sampleEmail())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.False(t, results[0].Valid)
	assert.True(t, results[1].Valid)
	assert.True(t, results[2].Valid)
}

func TestRunIntentFailureIsFatal(t *testing.T) {
	client := &fakeClient{
		responses: []string{structuralJSON, contentJSON, ""},
		errs:      []error{nil, nil, resilience.Faultf(resilience.Unreachable, "connection refused")},
	}

	results, err := testRunner(client).Run(context.Background(), sampleEmail())
	require.Error(t, err)
	assert.Equal(t, resilience.Unreachable, resilience.Classify(err))
	require.Len(t, results, 3)
	assert.False(t, results[2].Valid)
}

func TestRunSkipsDisabledAdvisoryPhase(t *testing.T) {
	client := &fakeClient{responses: []string{structuralJSON, intentJSON}}
	retry := resilience.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond}
	cfg := DefaultConfig()
	cfg.Phases = []core.PhaseName{core.PhaseStructural, core.PhaseIntent}

	results, err := NewRunner(client, nil, retry, cfg, nil).Run(context.Background(), sampleEmail())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, core.PhaseStructural, results[0].Name)
	assert.Equal(t, core.PhaseIntent, results[1].Name)
	assert.Equal(t, 2, client.calls)
	// The intent prompt still carries the structural summary forward.
	assert.Contains(t, client.prompts[1], "header mismatch")
}

func TestRunSkipsIntentWhenDisabled(t *testing.T) {
	client := &fakeClient{responses: []string{structuralJSON, contentJSON}}
	retry := resilience.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond}
	cfg := DefaultConfig()
	cfg.Phases = []core.PhaseName{core.PhaseStructural, core.PhaseContent}

	results, err := NewRunner(client, nil, retry, cfg, nil).Run(context.Background(), sampleEmail())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, client.calls)
	for _, pr := range results {
		assert.NotEqual(t, core.PhaseIntent, pr.Name)
	}
}

func TestRunMalformedResponseRepromptsOnce(t *testing.T) {
	client := &fakeClient{
		responses: []string{
			"this is not json at all",
			structuralJSON,
			contentJSON,
			intentJSON,
		},
	}

	results, err := testRunner(client).Run(context.Background(), sampleEmail())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Valid)

	// The second call was the stricter re-prompt of phase one.
	require.GreaterOrEqual(t, len(client.prompts), 2)
	assert.True(t, strings.Contains(client.prompts[1], "ONLY the JSON object"))
}

func TestRunMalformedIntentAfterRepromptFails(t *testing.T) {
	client := &fakeClient{
		responses: []string{
			structuralJSON,
			contentJSON,
			"still not json",
			"nope, still chatty",
		},
	}

	_, err := testRunner(client).Run(context.Background(), sampleEmail())
	require.Error(t, err)
	assert.Equal(t, resilience.MalformedResponse, resilience.Classify(err))
	assert.Equal(t, 4, client.calls)
}
