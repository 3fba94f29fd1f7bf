// Package normalize turns raw email input, either pasted text or a full
// mail container file, into the canonical representation the rest of the
// pipeline consumes.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/resilience"
	"github.com/mikey/llm-phishing-detector/internal/utils"
)

// Normalizer parses raw input into a CanonicalEmail. It is stateless and
// safe for concurrent use.
type Normalizer struct {
	logger *zap.Logger
	text   *utils.TextProcessor
}

// New creates a Normalizer.
func New(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger, text: utils.NewTextProcessor(logger)}
}

var headerLineRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*:\s?`)

// containerHeaders are the header names whose presence marks a full mail
// container file rather than pasted text.
var containerHeaders = map[string]bool{
	"from":           true,
	"to":             true,
	"subject":        true,
	"date":           true,
	"received":       true,
	"return-path":    true,
	"message-id":     true,
	"mime-version":   true,
	"content-type":   true,
	"reply-to":       true,
	"cc":             true,
	"dkim-signature": true,
}

// Normalize parses raw input and returns the canonical email. Empty or
// unrecognizable input yields an input-error fault; partial emails succeed
// with completeness flags set.
func (n *Normalizer) Normalize(raw string) (*core.CanonicalEmail, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, resilience.Faultf(resilience.InputError, "input is empty")
	}

	var email *core.CanonicalEmail
	var err error
	if SniffFormat(raw) == core.SourceContainerFile {
		email, err = n.parseContainer(raw)
		if err != nil {
			// A container that fails strict parsing is still analyzable as
			// pasted text.
			if n.logger != nil {
				n.logger.Debug("container parse failed, falling back to pasted text", zap.Error(err))
			}
			email = n.parsePastedText(raw)
		}
	} else {
		email = n.parsePastedText(raw)
	}

	if email.PlainBody == "" && email.HTMLBody == "" && len(email.Headers) == 0 {
		return nil, resilience.Faultf(resilience.InputError, "input is not recognizable as an email")
	}

	if email.HTMLBody != "" {
		text, anchors := FlattenHTML(email.HTMLBody)
		if email.PlainBody == "" {
			if !email.HasFlag(core.FlagNoPlainBody) {
				email.Completeness = append(email.Completeness, core.FlagNoPlainBody)
			}
			email.PlainBody = text
		}
		email.URLs = append(email.URLs, anchors...)
	}

	email.PlainBody = n.text.SanitizeUTF8(email.PlainBody)

	email.URLs = append(email.URLs, ExtractURLs(email.PlainBody)...)
	email.URLs = dedupeURLs(email.URLs)

	n.markCompleteness(email)
	sort.Slice(email.Completeness, func(i, j int) bool {
		return email.Completeness[i] < email.Completeness[j]
	})
	return email, nil
}

// SniffFormat decides whether raw input is a mail container file or pasted
// text. Two or more recognizable header lines before the first blank line
// mark a container.
func SniffFormat(raw string) core.SourceFormat {
	matches := 0
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			break
		}
		if !headerLineRe.MatchString(line) {
			continue
		}
		name := strings.ToLower(line[:strings.Index(line, ":")])
		if containerHeaders[name] {
			matches++
		}
		if matches >= 2 {
			return core.SourceContainerFile
		}
	}
	return core.SourcePastedText
}

// Fingerprint returns a stable identity for the email content, used as the
// verdict cache key.
func Fingerprint(email *core.CanonicalEmail) string {
	h := sha256.New()
	h.Write([]byte(email.Header("from")))
	h.Write([]byte{0})
	h.Write([]byte(email.Header("subject")))
	h.Write([]byte{0})
	h.Write([]byte(email.PlainBody))
	return hex.EncodeToString(h.Sum(nil))
}

func (n *Normalizer) parseContainer(raw string) (*core.CanonicalEmail, error) {
	msg, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}

	email := &core.CanonicalEmail{
		Headers:      map[string]string{},
		SourceFormat: core.SourceContainerFile,
	}
	for name, values := range msg.Header {
		if len(values) == 0 {
			continue
		}
		// Last value wins for repeated headers.
		email.Headers[strings.ToLower(name)] = values[len(values)-1]
	}

	plain, html, flags := extractBodies(msg)
	email.PlainBody = strings.TrimSpace(plain)
	email.HTMLBody = strings.TrimSpace(html)
	email.Completeness = append(email.Completeness, flags...)
	return email, nil
}

// parsePastedText pulls header-looking lines from the top of pasted content
// and treats the rest as the body.
func (n *Normalizer) parsePastedText(raw string) *core.CanonicalEmail {
	email := &core.CanonicalEmail{
		Headers:      map[string]string{},
		SourceFormat: core.SourcePastedText,
	}

	lines := strings.Split(raw, "\n")
	bodyStart := 0
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(email.Headers) > 0 {
				bodyStart = i + 1
			}
			break
		}
		if !headerLineRe.MatchString(line) {
			break
		}
		idx := strings.Index(line, ":")
		name := strings.ToLower(strings.TrimSpace(line[:idx]))
		if !containerHeaders[name] {
			break
		}
		email.Headers[name] = strings.TrimSpace(line[idx+1:])
		bodyStart = i + 1
	}

	body := strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))
	if looksLikeHTML(body) {
		email.HTMLBody = body
	} else {
		email.PlainBody = body
	}
	return email
}

func (n *Normalizer) markCompleteness(email *core.CanonicalEmail) {
	checks := []struct {
		header string
		flag   core.CompletenessFlag
	}{
		{"from", core.FlagMissingFrom},
		{"subject", core.FlagMissingSubject},
		{"date", core.FlagMissingDate},
		{"to", core.FlagMissingTo},
	}
	for _, c := range checks {
		if email.Header(c.header) == "" && !email.HasFlag(c.flag) {
			email.Completeness = append(email.Completeness, c.flag)
		}
	}
}

func looksLikeHTML(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "<html") ||
		strings.Contains(lower, "<body") ||
		strings.Contains(lower, "<a href") ||
		strings.Contains(lower, "</p>") ||
		strings.Contains(lower, "<div")
}

func dedupeURLs(urls []core.URLRef) []core.URLRef {
	seen := make(map[string]bool, len(urls))
	out := urls[:0]
	for _, u := range urls {
		key := u.Target + "\x00" + u.DisplayText
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u)
	}
	return out
}
