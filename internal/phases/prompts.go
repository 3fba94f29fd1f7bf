// Package phases drives the three-phase model conversation: structural
// header review, content review, and the final intent judgment. Earlier
// findings are fed forward into later prompts.
package phases

import (
	"fmt"
	"strings"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

const systemPrompt = "You are an email security analyst. You examine emails for phishing " +
	"indicators and answer ONLY with the JSON object requested, no prose before or after."

// maxBodyChars caps how much body text goes into a prompt so local models
// with small context windows are not overwhelmed.
const maxBodyChars = 4000

func structuralPrompt(email *core.CanonicalEmail) string {
	var b strings.Builder
	b.WriteString("Analyze ONLY the structure and headers of this email. Do not judge overall intent yet.\n\n")
	b.WriteString("Headers:\n")
	for _, name := range []string{"from", "reply-to", "return-path", "to", "subject", "date", "message-id", "received"} {
		if v := email.Header(name); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", name, v)
		}
	}
	if len(email.Completeness) > 0 {
		notes := make([]string, len(email.Completeness))
		for i, f := range email.Completeness {
			notes[i] = string(f)
		}
		fmt.Fprintf(&b, "\nNormalization notes: %s\n", strings.Join(notes, ", "))
	}
	b.WriteString(`
Respond with JSON in exactly this format:
{
    "header_findings": ["finding about a specific header"],
    "missing_headers": ["header name"],
    "authentication_concerns": ["authentication or routing concern"],
    "summary": "one sentence summary of structural risk"
}`)
	return b.String()
}

func contentPrompt(email *core.CanonicalEmail, structural *core.StructuralFindings) string {
	var b strings.Builder
	b.WriteString("Analyze the CONTENT of this email: links, language, and requested actions. Do not give a final verdict yet.\n\n")
	if structural != nil && structural.Summary != "" {
		fmt.Fprintf(&b, "Structural review so far: %s\n\n", structural.Summary)
	}
	fmt.Fprintf(&b, "Subject: %s\n\n", email.Header("subject"))
	fmt.Fprintf(&b, "Body:\n%s\n", truncate(email.PlainBody, maxBodyChars))
	if len(email.URLs) > 0 {
		b.WriteString("\nLinks found:\n")
		for _, u := range email.URLs {
			if u.DisplayText != "" && u.DisplayText != u.Target {
				fmt.Fprintf(&b, "- text %q -> %s\n", u.DisplayText, u.Target)
			} else {
				fmt.Fprintf(&b, "- %s\n", u.Target)
			}
		}
	}
	b.WriteString(`
Respond with JSON in exactly this format:
{
    "suspicious_urls": ["url and why it is suspicious"],
    "urgency_phrases": ["exact phrase from the email"],
    "requested_actions": ["what the email asks the reader to do"],
    "summary": "one sentence summary of content risk"
}`)
	return b.String()
}

func intentPrompt(email *core.CanonicalEmail, structural *core.StructuralFindings, content *core.ContentFindings) string {
	var b strings.Builder
	b.WriteString("Give the final phishing judgment for this email.\n\n")
	fmt.Fprintf(&b, "From: %s\n", email.Header("from"))
	fmt.Fprintf(&b, "Subject: %s\n\n", email.Header("subject"))
	fmt.Fprintf(&b, "Body:\n%s\n\n", truncate(email.PlainBody, maxBodyChars))

	if structural != nil && structural.Summary != "" {
		fmt.Fprintf(&b, "Structural review: %s\n", structural.Summary)
	}
	if content != nil && content.Summary != "" {
		fmt.Fprintf(&b, "Content review: %s\n", content.Summary)
	}

	b.WriteString(`
Respond with JSON in exactly this format:
{
    "risk_score": <integer 1-10, where 1 is definitely legitimate and 10 is definitely phishing>,
    "confidence": <float 0.0-1.0>,
    "red_flags": [{"label": "short name", "severity": "low|medium|high", "evidence": "exact text or header from the email"}],
    "reasoning": "brief explanation of the score"
}

Every red flag evidence value MUST quote text that actually appears in the email above.`)
	return b.String()
}

// strictRetrySuffix is appended when the first response failed to parse.
const strictRetrySuffix = "\n\nYour previous answer was not valid JSON. Respond again with ONLY the JSON object, " +
	"starting with { and ending with }. No markdown fences, no commentary."

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[truncated]"
}
