package phases

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/resilience"
)

// ExtractJSON pulls a JSON object out of model output. It first tries the
// whole response, then falls back to the span between the first '{' and
// the last '}', which tolerates markdown fences and chatter around the
// object.
func ExtractJSON(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return "", resilience.Faultf(resilience.MalformedResponse, "no JSON object in model output")
	}

	candidate := trimmed[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", resilience.Faultf(resilience.MalformedResponse, "model output between braces is not valid JSON")
	}
	return candidate, nil
}

func parseStructural(raw string) (*core.StructuralFindings, error) {
	doc, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var f core.StructuralFindings
	if err := json.Unmarshal([]byte(doc), &f); err != nil {
		return nil, resilience.NewFault(resilience.MalformedResponse, err)
	}
	return &f, nil
}

func parseContent(raw string) (*core.ContentFindings, error) {
	doc, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var f core.ContentFindings
	if err := json.Unmarshal([]byte(doc), &f); err != nil {
		return nil, resilience.NewFault(resilience.MalformedResponse, err)
	}
	return &f, nil
}

// intentWire tolerates the score arriving as either a number or a string.
type intentWire struct {
	RiskScore  json.Number `json:"risk_score"`
	Confidence json.Number `json:"confidence"`
	RedFlags   []struct {
		Label    string `json:"label"`
		Severity string `json:"severity"`
		Evidence string `json:"evidence"`
	} `json:"red_flags"`
	Reasoning string `json:"reasoning"`
}

func parseIntent(raw string) (*core.IntentFindings, error) {
	doc, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var wire intentWire
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return nil, resilience.NewFault(resilience.MalformedResponse, err)
	}

	score, err := wire.RiskScore.Float64()
	if err != nil {
		return nil, resilience.Faultf(resilience.MalformedResponse, "risk_score %q is not numeric", wire.RiskScore)
	}
	confidence, err := wire.Confidence.Float64()
	if err != nil {
		confidence = 0.5
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	findings := &core.IntentFindings{
		RiskScore:  core.ClampScore(int(math.Round(score))),
		Confidence: confidence,
		Reasoning:  strings.TrimSpace(wire.Reasoning),
	}
	for _, rf := range wire.RedFlags {
		label := strings.TrimSpace(rf.Label)
		if label == "" {
			continue
		}
		findings.RedFlags = append(findings.RedFlags, core.IntentRedFlag{
			Label:    label,
			Severity: parseSeverity(rf.Severity),
			Evidence: strings.TrimSpace(rf.Evidence),
		})
	}
	return findings, nil
}

func parseSeverity(s string) core.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical":
		return core.SeverityHigh
	case "medium", "moderate":
		return core.SeverityMedium
	default:
		return core.SeverityLow
	}
}
